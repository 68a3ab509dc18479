package backfill

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/intraday-data/internal/barstore"
	"github.com/rickgao/intraday-data/internal/model"
	"github.com/rickgao/intraday-data/internal/quality"
	"github.com/rickgao/intraday-data/internal/registry"
)

// ChartSource is the slice of the chart client backfill consumes.
type ChartSource interface {
	FullDayBars(ctx context.Context, symbol, day, cutoff, sessionOpen string) (model.Series, error)
	LatestBars(ctx context.Context, symbol, cutoff string) (model.Series, error)
	DailyBars(ctx context.Context, symbol, end string, days int) (model.Series, error)
}

// HoursSource resolves session times. Day and Clock format instants in
// exchange local time regardless of the zone they carry.
type HoursSource interface {
	SessionOpen(symbol string) string
	SessionClose(symbol string) string
	Day(t time.Time) string
	Clock(t time.Time) string
	Now() time.Time
}

// ValidateFunc checks a candidate series for continuity.
type ValidateFunc func(series model.Series, sessionOpen string) quality.Result

// Config holds Backfill Collector configuration.
type Config struct {
	DailyDays int // Calendar days of daily history fetched on first commit (default: 30)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{DailyDays: 30}
}

func (c *Config) applyDefaults() {
	if c.DailyDays <= 0 {
		c.DailyDays = DefaultConfig().DailyDays
	}
}

// Collector fills a symbol's historical working set.
type Collector struct {
	cfg      Config
	chart    ChartSource
	hours    HoursSource
	reg      *registry.Registry
	store    *barstore.Cache
	validate ValidateFunc
	logger   *slog.Logger
}

// New creates a Collector. A nil validate falls back to quality.Check.
func New(cfg Config, chart ChartSource, hours HoursSource, reg *registry.Registry, store *barstore.Cache, validate ValidateFunc, logger *slog.Logger) *Collector {
	cfg.applyDefaults()
	if validate == nil {
		validate = quality.Check
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		cfg:      cfg,
		chart:    chart,
		hours:    hours,
		reg:      reg,
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

type stage int

const (
	stageFetch stage = iota
	stageRetry
	stageFallback
	stageFilter
	stageTrim
	stageValidate
	stageCommit
	stageDone
)

func (s stage) String() string {
	switch s {
	case stageFetch:
		return "fetch"
	case stageRetry:
		return "retry"
	case stageFallback:
		return "fallback"
	case stageFilter:
		return "filter"
	case stageTrim:
		return "trim"
	case stageValidate:
		return "validate"
	case stageCommit:
		return "commit"
	default:
		return "done"
	}
}

// run carries one collection attempt through the stages.
type run struct {
	id     string
	symbol string
	day    string
	open   string
	cutoff string

	bars     model.Series
	degraded bool
}

// Collect fills the symbol's historical bars up to its selection point.
// Returns false only when the fallback itself fails; every other failure
// degrades and still commits.
func (c *Collector) Collect(ctx context.Context, symbol string) bool {
	selection, ok := c.reg.Selection(symbol)
	if !ok {
		c.logger.Warn("backfill requested for untracked symbol", "symbol", symbol)
		return false
	}

	now := c.hours.Now()
	r := &run{
		id:     uuid.NewString()[:8],
		symbol: symbol,
		day:    c.hours.Day(now),
		open:   c.hours.SessionOpen(symbol),
		cutoff: c.clampCutoff(c.hours.Clock(selection.Truncate(time.Minute)), symbol, now),
	}

	log := c.logger.With("run", r.id, "symbol", symbol, "day", r.day)
	log.Info("backfill started", "cutoff", r.cutoff, "session_open", r.open)

	st := stageFetch
	for st != stageDone {
		switch st {
		case stageFetch:
			bars, err := c.chart.FullDayBars(ctx, symbol, r.day, r.cutoff, r.open)
			if err != nil || len(bars) == 0 {
				log.Warn("fetch yielded nothing, shifting cutoff", "stage", st.String(), "err", err)
				st = stageRetry
				continue
			}
			r.bars = bars
			st = stageFilter

		case stageRetry:
			shifted, err := model.AddMinutes(r.cutoff, 1)
			if err != nil {
				st = stageFallback
				continue
			}
			r.cutoff = c.clampCutoff(shifted, symbol, c.hours.Now())

			bars, err := c.chart.FullDayBars(ctx, symbol, r.day, r.cutoff, r.open)
			if err != nil || len(bars) == 0 {
				log.Warn("retry yielded nothing, falling back", "stage", st.String(), "cutoff", r.cutoff, "err", err)
				st = stageFallback
				continue
			}
			r.bars = bars
			st = stageFilter

		case stageFallback:
			bars, err := c.chart.LatestBars(ctx, symbol, r.cutoff)
			if err != nil {
				log.Error("fallback fetch failed, aborting", "stage", st.String(), "err", err)
				return false
			}
			r.degraded = true
			r.bars = bars.FilterDay(r.day).TrimAfter(r.cutoff)
			log.Info("fallback bars collected", "stage", st.String(), "bars", len(r.bars))
			// Fallback output commits as-is, even empty.
			st = stageCommit

		case stageFilter:
			before := len(r.bars)
			r.bars = r.bars.FilterDay(r.day)
			log.Debug("stale days filtered", "stage", st.String(), "before", before, "after", len(r.bars))
			st = stageTrim

		case stageTrim:
			before := len(r.bars)
			r.bars = r.bars.TrimAfter(r.cutoff)
			log.Debug("cutoff trimmed", "stage", st.String(), "before", before, "after", len(r.bars))
			st = stageValidate

		case stageValidate:
			if len(r.bars) == 0 {
				log.Warn("nothing left after filtering, falling back", "stage", st.String())
				st = stageFallback
				continue
			}
			res := c.validate(r.bars, r.open)
			if !res.Valid {
				log.Warn("continuity check failed, falling back",
					"stage", st.String(),
					"reason", res.Reason,
					"gaps", res.Gaps,
				)
				st = stageFallback
				continue
			}
			st = stageCommit

		case stageCommit:
			if err := c.commit(ctx, r, log); err != nil {
				// Commit failures are registry-level bugs, not data issues.
				log.Error("commit failed", "stage", st.String(), "err", err)
				return false
			}
			st = stageDone
		}
	}

	log.Info("backfill complete", "bars", len(r.bars), "degraded", r.degraded)
	return true
}

// clampCutoff keeps a cutoff inside the session and never in the future.
func (c *Collector) clampCutoff(cutoff, symbol string, now time.Time) string {
	if sessionClose := c.hours.SessionClose(symbol); cutoff > sessionClose {
		cutoff = sessionClose
	}
	if nowClock := c.hours.Clock(now.Truncate(time.Minute)); cutoff > nowClock {
		cutoff = nowClock
	}
	return cutoff
}

// commit writes the collected bars to the registry and the store. Store
// failures only log; in-memory state is authoritative.
func (c *Collector) commit(ctx context.Context, r *run, log *slog.Logger) error {
	if err := c.reg.SetHistorical(r.symbol, r.bars, true); err != nil {
		return err
	}

	if err := c.store.Save(r.symbol, barstore.MinuteScope(r.day), r.bars); err != nil {
		log.Warn("minute partition save failed", "err", err)
	}

	if !c.store.Has(r.symbol, barstore.DailyScope()) {
		daily, err := c.chart.DailyBars(ctx, r.symbol, r.day, c.cfg.DailyDays)
		if err != nil {
			log.Warn("daily history fetch failed", "err", err)
			return nil
		}
		if err := c.store.Save(r.symbol, barstore.DailyScope(), daily); err != nil {
			log.Warn("daily history save failed", "err", err)
		}
	}
	return nil
}
