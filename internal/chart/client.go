package chart

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/rickgao/intraday-data/internal/model"
)

// maxFullDayPages bounds the backward paging loop. A full session is
// under 400 minutes, well inside 10 pages of 120.
const maxFullDayPages = 10

// Client fetches candles from the brokerage chart API.
type Client struct {
	http   *resty.Client
	logger *slog.Logger

	appKey    string
	appSecret string
	token     string
	marketDiv string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a chart client. Credentials go out on every request;
// token refresh is the caller's concern.
func NewClient(baseURL, appKey, appSecret, token string, opts ...ClientOption) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(500 * time.Millisecond).
			SetHeader("Content-Type", "application/json; charset=utf-8"),
		logger:    slog.Default(),
		appKey:    appKey,
		appSecret: appSecret,
		token:     token,
		marketDiv: "UN",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithRetries sets the transport-level retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetRetryCount(max).SetRetryWaitTime(backoff)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMarketDiv sets the market division code (J, NX, UN).
func WithMarketDiv(div string) ClientOption {
	return func(c *Client) {
		c.marketDiv = div
	}
}

func (c *Client) headers(trID string) map[string]string {
	return map[string]string{
		"authorization": "Bearer " + c.token,
		"appkey":        c.appKey,
		"appsecret":     c.appSecret,
		"tr_id":         trID,
		"custtype":      "P",
	}
}

// get performs one envelope-checked request.
func (c *Client) get(ctx context.Context, path, trID string, params map[string]string, out any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(c.headers(trID)).
		SetQueryParams(params).
		SetResult(out).
		ForceContentType("application/json").
		Get(path)
	if err != nil {
		return fmt.Errorf("chart request %s: %w", path, err)
	}
	if resp.IsError() {
		return &APIError{StatusCode: resp.StatusCode(), Message: resp.Status()}
	}
	return nil
}

// FullDayBars fetches the full minute history for one trading day, paging
// backwards from cutoff (HHMMSS) in windows of up to 120 rows. Paging
// stops when a page comes back short or the window reaches sessionOpen.
// The result is ascending, deduplicated, unfiltered; callers drop foreign
// days themselves.
func (c *Client) FullDayBars(ctx context.Context, symbol, day, cutoff, sessionOpen string) (model.Series, error) {
	var all model.Series
	hour := cutoff

	for page := 0; page < maxFullDayPages; page++ {
		var envelope chartResponse
		params := map[string]string{
			"FID_COND_MRKT_DIV_CODE": c.marketDiv,
			"FID_INPUT_ISCD":         symbol,
			"FID_INPUT_DATE_1":       day,
			"FID_INPUT_HOUR_1":       hour,
			"FID_PW_DATA_INCU_YN":    "Y",
			"FID_FAKE_TICK_INCU_YN":  "N",
		}
		if err := c.get(ctx, pathTimeDailyChart, trTimeDailyChart, params, &envelope); err != nil {
			return nil, err
		}
		if envelope.RtCd != "0" {
			return nil, &APIError{StatusCode: 200, Code: envelope.MsgCd, Message: envelope.Msg1}
		}

		rows := envelope.Output2
		if len(rows) == 0 {
			break
		}
		all = append(all, rowsToSeries(rows)...)

		// Rows arrive newest first; the last row is the window's earliest.
		earliest := rows[len(rows)-1].CntgHour
		if len(rows) < fullDayPageSize || earliest <= sessionOpen {
			break
		}

		next, err := model.AddMinutes(earliest, -1)
		if err != nil || next < sessionOpen {
			break
		}
		hour = next
	}

	c.logger.Debug("full-day chart fetched",
		"symbol", symbol,
		"day", day,
		"cutoff", cutoff,
		"bars", len(all),
	)

	return all.DedupKeepLast(), nil
}

// LatestBars fetches the current session's most recent bars, at most 30.
// The result is ascending and deduplicated.
func (c *Client) LatestBars(ctx context.Context, symbol, cutoff string) (model.Series, error) {
	var envelope chartResponse
	params := map[string]string{
		"FID_ETC_CLS_CODE":       "",
		"FID_COND_MRKT_DIV_CODE": c.marketDiv,
		"FID_INPUT_ISCD":         symbol,
		"FID_INPUT_HOUR_1":       cutoff,
		"FID_PW_DATA_INCU_YN":    "Y",
	}
	if err := c.get(ctx, pathTimeItemChart, trTimeItemChart, params, &envelope); err != nil {
		return nil, err
	}
	if envelope.RtCd != "0" {
		return nil, &APIError{StatusCode: 200, Code: envelope.MsgCd, Message: envelope.Msg1}
	}

	return rowsToSeries(envelope.Output2).DedupKeepLast(), nil
}

// DailyBars fetches daily candles covering the last days calendar days
// ending at end (YYYYMMDD). The result is ascending and deduplicated.
func (c *Client) DailyBars(ctx context.Context, symbol, end string, days int) (model.Series, error) {
	endT, err := time.Parse("20060102", end)
	if err != nil {
		return nil, fmt.Errorf("parse end day %q: %w", end, err)
	}
	start := endT.AddDate(0, 0, -days).Format("20060102")

	var envelope dailyResponse
	params := map[string]string{
		"FID_COND_MRKT_DIV_CODE": c.marketDiv,
		"FID_INPUT_ISCD":         symbol,
		"FID_INPUT_DATE_1":       start,
		"FID_INPUT_DATE_2":       end,
		"FID_PERIOD_DIV_CODE":    "D",
		"FID_ORG_ADJ_PRC":        "0",
	}
	if err := c.get(ctx, pathDailyItemChart, trDailyItemChart, params, &envelope); err != nil {
		return nil, err
	}
	if envelope.RtCd != "0" {
		return nil, &APIError{StatusCode: 200, Code: envelope.MsgCd, Message: envelope.Msg1}
	}

	return dailyRowsToSeries(envelope.Output2).DedupKeepLast(), nil
}
