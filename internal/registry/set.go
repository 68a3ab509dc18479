package registry

import (
	"sync"
	"time"

	"github.com/rickgao/intraday-data/internal/model"
)

// SymbolSet is one symbol's working set.
type SymbolSet struct {
	Symbol      string
	Name        string
	Historical  model.Series // backfilled bars, session open through selection
	Incremental model.Series // updater-appended bars past the selection point
	SelectedAt  time.Time    // selection cutoff; backfill covers up to here
	LastUpdate  time.Time
	Complete    bool // historical collection finished (possibly degraded)
}

// clone returns a deep copy.
func (s SymbolSet) clone() SymbolSet {
	c := s
	c.Historical = s.Historical.Clone()
	c.Incremental = s.Incremental.Clone()
	return c
}

// entry pairs a working set with its mutex. The mutex serializes backfill
// commits against updater commits for the same symbol.
type entry struct {
	mu  sync.Mutex
	set SymbolSet
}

// SelectionEvent records one Track call for diagnostics and the history
// recorder.
type SelectionEvent struct {
	Symbol string
	Name   string
	At     time.Time
	Reason string
}
