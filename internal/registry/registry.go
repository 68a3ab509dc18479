package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/intraday-data/internal/barstore"
	"github.com/rickgao/intraday-data/internal/model"
)

var (
	// ErrCapacity reports that the working set is full.
	ErrCapacity = errors.New("registry: working set at capacity")

	// ErrUnknownSymbol reports an operation on an untracked symbol.
	ErrUnknownSymbol = errors.New("registry: symbol not tracked")
)

// Config holds Working-Set Registry configuration.
type Config struct {
	Capacity    int // Max tracked symbols (default: 30)
	HistorySize int // Selection events retained (default: 200)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:    30,
		HistorySize: 200,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Capacity <= 0 {
		c.Capacity = def.Capacity
	}
	if c.HistorySize <= 0 {
		c.HistorySize = def.HistorySize
	}
}

// Registry is the Working-Set Registry.
type Registry struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry

	// Selection history ring, newest last.
	history []SelectionEvent

	// onSelect, when set, observes every successful Track.
	onSelect func(SelectionEvent)

	// now is swappable in tests.
	now func() time.Time
}

// New creates an empty registry.
func New(cfg Config, logger *slog.Logger) *Registry {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetSelectionHook registers an observer for Track events. Called outside
// the registry lock.
func (r *Registry) SetSelectionHook(fn func(SelectionEvent)) {
	r.onSelect = fn
}

// Track adds a symbol to the working set. Tracking an already-tracked
// symbol is a no-op. Returns ErrCapacity when the set is full.
func (r *Registry) Track(symbol, name, reason string) error {
	now := r.now()

	r.mu.Lock()
	if _, ok := r.entries[symbol]; ok {
		r.mu.Unlock()
		return nil
	}
	if len(r.entries) >= r.cfg.Capacity {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d symbols", ErrCapacity, r.cfg.Capacity)
	}

	r.entries[symbol] = &entry{
		set: SymbolSet{
			Symbol:     symbol,
			Name:       name,
			SelectedAt: now,
		},
	}

	ev := SelectionEvent{Symbol: symbol, Name: name, At: now, Reason: reason}
	r.history = append(r.history, ev)
	if len(r.history) > r.cfg.HistorySize {
		r.history = r.history[len(r.history)-r.cfg.HistorySize:]
	}
	r.mu.Unlock()

	r.logger.Info("symbol tracked", "symbol", symbol, "name", name, "reason", reason)

	if r.onSelect != nil {
		r.onSelect(ev)
	}
	return nil
}

// Untrack drops a symbol's working set.
func (r *Registry) Untrack(symbol string) {
	r.mu.Lock()
	delete(r.entries, symbol)
	r.mu.Unlock()

	r.logger.Info("symbol untracked", "symbol", symbol)
}

// Clear discards every working set. Selection history is retained; the
// next session starts from an empty registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	n := len(r.entries)
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	r.logger.Info("working sets discarded", "symbols", n)
}

// Tracked returns the tracked symbols.
func (r *Registry) Tracked() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.entries))
	for s := range r.entries {
		out = append(out, s)
	}
	return out
}

// Get returns a copy of a symbol's working set.
func (r *Registry) Get(symbol string) (SymbolSet, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return SymbolSet{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.clone(), true
}

// History returns a copy of the selection history, newest last.
func (r *Registry) History() []SelectionEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SelectionEvent, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Registry) entry(symbol string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[symbol]
	return e, ok
}

// CombinedBars returns historical and incremental bars merged ascending
// and deduplicated, incremental winning on overlap. The result is a copy.
func (r *Registry) CombinedBars(symbol string) (model.Series, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return model.Merge(e.set.Historical, e.set.Incremental), true
}

// Selection returns the symbol's selection cutoff.
func (r *Registry) Selection(symbol string) (time.Time, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return time.Time{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.SelectedAt, true
}

// AdvanceSelection moves the selection cutoff forward. Collection state is
// reset so backfill re-covers the widened window.
func (r *Registry) AdvanceSelection(symbol string, to time.Time) error {
	e, ok := r.entry(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.SelectedAt = to
	e.set.Complete = false
	return nil
}

// SetHistorical commits backfill output under the symbol lock.
func (r *Registry) SetHistorical(symbol string, bars model.Series, complete bool) error {
	e, ok := r.entry(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Historical = bars.Clone()
	e.set.Complete = complete
	e.set.LastUpdate = r.now()
	return nil
}

// SetIncremental commits updater output under the symbol lock.
func (r *Registry) SetIncremental(symbol string, bars model.Series) error {
	e, ok := r.entry(symbol)
	if !ok {
		return ErrUnknownSymbol
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.Incremental = bars.Clone()
	e.set.LastUpdate = r.now()
	return nil
}

// IncrementalBars returns a copy of the symbol's incremental bars.
func (r *Registry) IncrementalBars(symbol string) (model.Series, bool) {
	e, ok := r.entry(symbol)
	if !ok {
		return nil, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.Incremental.Clone(), true
}

// Complete reports whether backfill finished for the symbol.
func (r *Registry) Complete(symbol string) bool {
	e, ok := r.entry(symbol)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.Complete
}

// FlushTo persists every tracked symbol's combined minute bars into the
// store, one partition per trading day present in the working set.
func (r *Registry) FlushTo(store *barstore.Cache) error {
	var errs []error
	for _, symbol := range r.Tracked() {
		combined, ok := r.CombinedBars(symbol)
		if !ok || len(combined) == 0 {
			continue
		}
		for day := range combined.Days() {
			if err := store.Save(symbol, barstore.MinuteScope(day), combined.FilterDay(day)); err != nil {
				errs = append(errs, fmt.Errorf("flush %s/%s: %w", symbol, day, err))
			}
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	r.logger.Info("working sets flushed", "symbols", len(r.Tracked()))
	return nil
}
