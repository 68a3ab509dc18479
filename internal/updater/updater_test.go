package updater

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/intraday-data/internal/model"
	"github.com/rickgao/intraday-data/internal/registry"
)

type fakeLatest struct {
	latest  func(symbol, cutoff string) (model.Series, error)
	cutoffs []string
}

func (f *fakeLatest) LatestBars(_ context.Context, symbol, cutoff string) (model.Series, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	if f.latest == nil {
		return nil, nil
	}
	return f.latest(symbol, cutoff)
}

type fakeHours struct {
	now  time.Time
	open string
}

func (h fakeHours) SessionOpen(string) string { return h.open }
func (h fakeHours) Day(t time.Time) string    { return t.Format("20060102") }
func (h fakeHours) Now() time.Time            { return h.now }

type fakeBackfiller struct {
	called int
	result bool
}

func (f *fakeBackfiller) Collect(context.Context, string) bool {
	f.called++
	return f.result
}

func bar(day, hhmmss string, close float64) model.Bar {
	return model.Bar{Day: day, Time: hhmmss, Open: close, High: close, Low: close, Close: close, Volume: 1}
}

// sufficientBase seeds 5 contiguous bars from the open so the sufficiency
// check passes.
func sufficientBase(t *testing.T, reg *registry.Registry, symbol, day string) {
	t.Helper()
	base := model.Series{
		bar(day, "090000", 100),
		bar(day, "090100", 101),
		bar(day, "090200", 102),
		bar(day, "090300", 103),
		bar(day, "090400", 104),
	}
	if err := reg.SetHistorical(symbol, base, true); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T, now time.Time, chart *fakeLatest, bf *fakeBackfiller) (*Updater, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.Config{}, nil)
	if err := reg.Track("TEST01", "Alpha", "test"); err != nil {
		t.Fatal(err)
	}
	u := New(Config{}, chart, fakeHours{now: now, open: "090000"}, reg, bf, nil)
	return u, reg
}

func TestTick_AppendsOneEntry(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 7, 30, 0, time.UTC)
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return model.Series{
				bar("20241231", "152900", 90), // yesterday, must vanish
				bar("20250101", "090600", 106),
			}, nil
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")
	if err := reg.SetIncremental("TEST01", model.Series{bar("20250101", "090500", 105)}); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 2 {
		t.Fatalf("incremental = %d bars, want 2 (one appended)", len(incr))
	}
	if last, _ := incr.Last(); last.Time != "090600" || last.Day != "20250101" {
		t.Errorf("appended bar = %+v", last)
	}
	if bf.called != 0 {
		t.Errorf("backfill delegated %d times, want 0", bf.called)
	}

	// Cutoff is the last completed minute.
	if len(chart.cutoffs) != 1 || chart.cutoffs[0] != "090600" {
		t.Errorf("cutoffs = %v, want [090600]", chart.cutoffs)
	}
}

func TestTick_InsufficientAfterGraceRecollects(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	chart := &fakeLatest{}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	// Two bars only, selected 10 minutes ago.
	if err := reg.SetHistorical("TEST01", model.Series{
		bar("20250101", "090000", 100),
		bar("20250101", "090100", 101),
	}, true); err != nil {
		t.Fatal(err)
	}
	if err := reg.AdvanceSelection("TEST01", now.Add(-10*time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if bf.called != 1 {
		t.Fatalf("backfill delegated %d times, want 1", bf.called)
	}
	if sel, _ := reg.Selection("TEST01"); !sel.Equal(now) {
		t.Errorf("selection = %v, want advanced to %v", sel, now)
	}
	if len(chart.cutoffs) != 0 {
		t.Error("tick fetched despite delegating to backfill")
	}
}

func TestTick_InsufficientWithinGraceUpdatesNormally(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 3, 30, 0, time.UTC)
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return model.Series{
				bar("20250101", "090100", 101),
				bar("20250101", "090200", 102),
			}, nil
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	if err := reg.AdvanceSelection("TEST01", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if bf.called != 0 {
		t.Errorf("backfill delegated %d times, want 0 within grace", bf.called)
	}
	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 2 {
		t.Errorf("incremental = %d bars, want 2", len(incr))
	}
}

func TestTick_EarlyFetchFailureRecollects(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 10, 0, 0, time.UTC)
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return nil, errors.New("transport down")
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if bf.called != 1 {
		t.Errorf("backfill delegated %d times, want 1 in early session", bf.called)
	}
}

func TestTick_LateFetchFailureKeepsPriorData(t *testing.T) {
	now := time.Date(2025, 1, 1, 14, 0, 0, 0, time.UTC)
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return nil, errors.New("transport down")
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")
	prior := model.Series{bar("20250101", "135800", 200)}
	if err := reg.SetIncremental("TEST01", prior); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick = %v, want success on late failure", err)
	}
	if bf.called != 0 {
		t.Errorf("backfill delegated %d times, want 0 late in session", bf.called)
	}
	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 1 || incr[0].Time != "135800" {
		t.Errorf("incremental mutated on failed tick: %+v", incr)
	}
}

func TestTick_AllStaleFetchAborts(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return model.Series{bar("20241231", "095900", 90)}, nil
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")
	prior := model.Series{bar("20250101", "095800", 200)}
	if err := reg.SetIncremental("TEST01", prior); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err == nil {
		t.Fatal("Tick succeeded with only stale bars fetched")
	}
	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 1 || incr[0].Time != "095800" {
		t.Errorf("incremental mutated on failed tick: %+v", incr)
	}
}

func TestTick_WindowFallsBackToTailPair(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 7, 0, 0, time.UTC) // target 090600
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			// Target minute absent; the two most recent win.
			return model.Series{
				bar("20250101", "090200", 102),
				bar("20250101", "090300", 103),
				bar("20250101", "090400", 104),
			}, nil
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 2 {
		t.Fatalf("incremental = %d bars, want the tail pair", len(incr))
	}
	if incr[0].Time != "090300" || incr[1].Time != "090400" {
		t.Errorf("window = %q,%q, want 090300,090400", incr[0].Time, incr[1].Time)
	}
}

func TestTick_MergeDedupNewestWins(t *testing.T) {
	now := time.Date(2025, 1, 1, 9, 6, 0, 0, time.UTC) // target 090500
	chart := &fakeLatest{
		latest: func(symbol, cutoff string) (model.Series, error) {
			return model.Series{
				bar("20250101", "090400", 999), // revises an existing bar
				bar("20250101", "090500", 105),
			}, nil
		},
	}
	bf := &fakeBackfiller{result: true}
	u, reg := newFixture(t, now, chart, bf)
	sufficientBase(t, reg, "TEST01", "20250101")
	if err := reg.SetIncremental("TEST01", model.Series{bar("20250101", "090400", 104)}); err != nil {
		t.Fatal(err)
	}

	if err := u.Tick(context.Background(), "TEST01"); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	incr, _ := reg.IncrementalBars("TEST01")
	if len(incr) != 2 {
		t.Fatalf("incremental = %d bars, want 2", len(incr))
	}
	if incr[0].Close != 999 {
		t.Errorf("revised bar Close = %v, want newest 999", incr[0].Close)
	}
}
