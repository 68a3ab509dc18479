// Package updater appends freshly completed minute bars to tracked
// symbols' working sets.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/intraday-data/internal/model"
	"github.com/rickgao/intraday-data/internal/registry"
)

// LatestSource is the slice of the chart client the updater consumes.
type LatestSource interface {
	LatestBars(ctx context.Context, symbol, cutoff string) (model.Series, error)
}

// HoursSource resolves session times.
type HoursSource interface {
	SessionOpen(symbol string) string
	Day(t time.Time) string
	Now() time.Time
}

// Backfiller re-collects a symbol's history when the working set is too
// thin or too stale to update incrementally.
type Backfiller interface {
	Collect(ctx context.Context, symbol string) bool
}

// Config holds Incremental Updater configuration.
type Config struct {
	MinBars       int           // Sufficiency floor on combined bars (default: 5)
	OpenSlack     time.Duration // First bar must fall within this of session open (default: 5m)
	ReselectAfter time.Duration // Insufficient data this long after selection triggers re-collection (default: 5m)
	EarlyWindow   time.Duration // Fetch failures this soon after open trigger re-collection (default: 15m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinBars:       5,
		OpenSlack:     5 * time.Minute,
		ReselectAfter: 5 * time.Minute,
		EarlyWindow:   15 * time.Minute,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MinBars <= 0 {
		c.MinBars = def.MinBars
	}
	if c.OpenSlack <= 0 {
		c.OpenSlack = def.OpenSlack
	}
	if c.ReselectAfter <= 0 {
		c.ReselectAfter = def.ReselectAfter
	}
	if c.EarlyWindow <= 0 {
		c.EarlyWindow = def.EarlyWindow
	}
}

// Updater advances working sets one tick at a time.
type Updater struct {
	cfg      Config
	chart    LatestSource
	hours    HoursSource
	reg      *registry.Registry
	backfill Backfiller
	logger   *slog.Logger
}

// New creates an Updater.
func New(cfg Config, chart LatestSource, hours HoursSource, reg *registry.Registry, backfill Backfiller, logger *slog.Logger) *Updater {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		cfg:      cfg,
		chart:    chart,
		hours:    hours,
		reg:      reg,
		backfill: backfill,
		logger:   logger,
	}
}

// Tick runs one incremental update for the symbol. A failed tick never
// mutates registry state.
func (u *Updater) Tick(ctx context.Context, symbol string) error {
	now := u.hours.Now()
	today := u.hours.Day(now)
	open := u.hours.SessionOpen(symbol)
	log := u.logger.With("symbol", symbol, "day", today)

	combined, ok := u.reg.CombinedBars(symbol)
	if !ok {
		return fmt.Errorf("updater: symbol %s not tracked", symbol)
	}

	if !u.sufficient(combined, today, open) {
		selection, _ := u.reg.Selection(symbol)
		if now.Sub(selection) >= u.cfg.ReselectAfter {
			log.Info("working set insufficient, re-collecting",
				"bars", len(combined),
				"since_selection", now.Sub(selection),
			)
			if err := u.reg.AdvanceSelection(symbol, now); err != nil {
				return err
			}
			if !u.backfill.Collect(ctx, symbol) {
				return fmt.Errorf("updater: re-collection failed for %s", symbol)
			}
			return nil
		}
		// Too soon to re-collect; fall through and update normally.
	}

	// Last completed minute.
	target := now.Truncate(time.Minute).Add(-time.Minute)
	targetTime := model.ClockOf(target)

	fetched, err := u.chart.LatestBars(ctx, symbol, targetTime)
	if err != nil {
		if u.earlySession(now, open) {
			log.Warn("fetch failed early in session, re-collecting", "err", err)
			if rerr := u.reg.AdvanceSelection(symbol, now); rerr != nil {
				return rerr
			}
			if !u.backfill.Collect(ctx, symbol) {
				return fmt.Errorf("updater: re-collection after fetch failure failed for %s", symbol)
			}
			return nil
		}
		// Late-session hiccup: keep what we have.
		log.Warn("fetch failed, keeping prior data", "err", err)
		return nil
	}

	// First stage: drop foreign days before looking at anything else.
	todays := fetched.FilterDay(today)
	if len(todays) == 0 {
		return fmt.Errorf("updater: no bars for %s in fetch for %s", today, symbol)
	}

	window := u.window(todays, targetTime)

	// Second stage: the window again, in case selection pulled in a
	// boundary row.
	window = window.FilterDay(today)

	existing, _ := u.reg.IncrementalBars(symbol)
	merged := model.Merge(existing, window)

	// Third stage: nothing stale survives the merge.
	merged = merged.FilterDay(today)

	if err := u.reg.SetIncremental(symbol, merged); err != nil {
		return err
	}

	log.Debug("tick committed",
		"target", targetTime,
		"window", len(window),
		"incremental", len(merged),
	)
	return nil
}

// sufficient reports whether the combined series is a usable base: enough
// bars, all from today, starting close enough to the session open.
func (u *Updater) sufficient(combined model.Series, today, open string) bool {
	if len(combined) < u.cfg.MinBars {
		return false
	}
	for _, b := range combined {
		if b.Day != today {
			return false
		}
	}

	first, _ := combined.First()
	firstMin, err := model.MinuteOfDay(first.Time)
	if err != nil {
		return false
	}
	openMin, err := model.MinuteOfDay(open)
	if err != nil {
		return false
	}
	return firstMin-openMin <= int(u.cfg.OpenSlack.Minutes())
}

// earlySession reports whether now falls within the first EarlyWindow of
// the session.
func (u *Updater) earlySession(now time.Time, open string) bool {
	limit, err := model.AddMinutes(open, int(u.cfg.EarlyWindow.Minutes()))
	if err != nil {
		return false
	}
	return model.ClockOf(now) <= limit
}

// window picks the two bars worth committing: the target minute and the
// one before it when the target is present, otherwise the two most recent.
func (u *Updater) window(bars model.Series, targetTime string) model.Series {
	sorted := bars.DedupKeepLast()

	prevTime, err := model.AddMinutes(targetTime, -1)
	if err != nil {
		prevTime = ""
	}

	var hit model.Series
	for _, b := range sorted {
		if b.Time == targetTime || b.Time == prevTime {
			hit = append(hit, b)
		}
	}

	hasTarget := false
	for _, b := range hit {
		if b.Time == targetTime {
			hasTarget = true
		}
	}
	if hasTarget {
		return hit
	}

	if len(sorted) <= 2 {
		return sorted
	}
	return sorted[len(sorted)-2:].Clone()
}
