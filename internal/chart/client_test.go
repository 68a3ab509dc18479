package chart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rickgao/intraday-data/internal/model"
)

// wireRows builds count rows ending at newest (HHMMSS), newest first,
// one per minute, the way the API delivers them.
func wireRows(t *testing.T, day, newest string, count int) []map[string]string {
	t.Helper()
	rows := make([]map[string]string, 0, count)
	hh := newest
	for i := 0; i < count; i++ {
		rows = append(rows, map[string]string{
			"stck_bsop_date": day,
			"stck_cntg_hour": hh,
			"stck_oprc":      "100",
			"stck_hgpr":      "101",
			"stck_lwpr":      "99",
			"stck_prpr":      "100",
			"cntg_vol":       "10",
			"acml_tr_pbmn":   "1000",
		})
		prev, err := model.AddMinutes(hh, -1)
		if err != nil {
			t.Fatal(err)
		}
		hh = prev
	}
	return rows
}

func writeEnvelope(w http.ResponseWriter, rows []map[string]string) {
	json.NewEncoder(w).Encode(map[string]any{
		"rt_cd":   "0",
		"msg_cd":  "MCA00000",
		"msg1":    "ok",
		"output2": rows,
	})
}

func TestClient_FullDayBars_Pagination(t *testing.T) {
	var hours []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hour := r.URL.Query().Get("FID_INPUT_HOUR_1")
		hours = append(hours, hour)

		switch len(hours) {
		case 1:
			// Full page: 13:00 back to 11:01.
			writeEnvelope(w, wireRows(t, "20250101", "130000", 120))
		case 2:
			// Short page ends the loop.
			writeEnvelope(w, wireRows(t, "20250101", "110000", 60))
		default:
			t.Errorf("unexpected page %d", len(hours))
			writeEnvelope(w, nil)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token")

	got, err := c.FullDayBars(context.Background(), "TEST01", "20250101", "130000", "090000")
	if err != nil {
		t.Fatalf("FullDayBars failed: %v", err)
	}

	if len(hours) != 2 {
		t.Fatalf("pages fetched = %d, want 2", len(hours))
	}
	if hours[0] != "130000" {
		t.Errorf("first window = %q, want 130000", hours[0])
	}
	if hours[1] != "110000" {
		t.Errorf("second window = %q, want 110000 (earliest minus one)", hours[1])
	}

	if len(got) != 180 {
		t.Fatalf("bars = %d, want 180", len(got))
	}
	if first, _ := got.First(); first.Time != "100100" {
		t.Errorf("first bar = %q, want 100100", first.Time)
	}
	if last, _ := got.Last(); last.Time != "130000" {
		t.Errorf("last bar = %q, want 130000", last.Time)
	}
}

func TestClient_FullDayBars_StopsAtSessionOpen(t *testing.T) {
	var pages int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// Full page whose earliest row is the session open.
		writeEnvelope(w, wireRows(t, "20250101", "105900", 120))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token")

	got, err := c.FullDayBars(context.Background(), "TEST01", "20250101", "105900", "090000")
	if err != nil {
		t.Fatalf("FullDayBars failed: %v", err)
	}
	if pages != 1 {
		t.Errorf("pages = %d, want 1 (earliest reached session open)", pages)
	}
	if len(got) != 120 {
		t.Errorf("bars = %d, want 120", len(got))
	}
}

func TestClient_LatestBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("tr_id"); got != trTimeItemChart {
			t.Errorf("tr_id = %q, want %q", got, trTimeItemChart)
		}
		writeEnvelope(w, wireRows(t, "20250101", "093000", 3))
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token")

	got, err := c.LatestBars(context.Background(), "TEST01", "093000")
	if err != nil {
		t.Fatalf("LatestBars failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("bars = %d, want 3", len(got))
	}
	if got[0].Time != "092800" || got[2].Time != "093000" {
		t.Errorf("order = %q..%q, want ascending 092800..093000", got[0].Time, got[2].Time)
	}
}

func TestClient_DailyBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("FID_PERIOD_DIV_CODE"); got != "D" {
			t.Errorf("period div = %q, want D", got)
		}
		if got := q.Get("FID_INPUT_DATE_2"); got != "20250101" {
			t.Errorf("end date = %q, want 20250101", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd": "0",
			"output2": []map[string]string{
				{"stck_bsop_date": "20250101", "stck_oprc": "100", "stck_hgpr": "105", "stck_lwpr": "99", "stck_clpr": "103", "acml_vol": "500", "acml_tr_pbmn": "1000"},
				{"stck_bsop_date": "20241231", "stck_oprc": "98", "stck_hgpr": "101", "stck_lwpr": "97", "stck_clpr": "100", "acml_vol": "400", "acml_tr_pbmn": "900"},
			},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token")

	got, err := c.DailyBars(context.Background(), "TEST01", "20250101", 30)
	if err != nil {
		t.Fatalf("DailyBars failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("bars = %d, want 2", len(got))
	}
	if got[0].Day != "20241231" || got[1].Day != "20250101" {
		t.Errorf("order = %s, %s, want ascending days", got[0].Day, got[1].Day)
	}
	if got[1].Close != 103 {
		t.Errorf("Close = %v, want 103", got[1].Close)
	}
}

func TestClient_EnvelopeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"rt_cd":  "1",
			"msg_cd": "EGW00201",
			"msg1":   "rate limited",
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token")

	_, err := c.LatestBars(context.Background(), "TEST01", "093000")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Code != "EGW00201" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	if !apiErr.Retryable() {
		t.Error("rate-limit rejection not retryable")
	}
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	c := NewClient(server.URL, "key", "secret", "token", WithRetries(0, 0))

	_, err := c.LatestBars(context.Background(), "TEST01", "093000")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
	if apiErr.Retryable() {
		t.Error("403 reported retryable")
	}
}
