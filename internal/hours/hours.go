package hours

import (
	"sync"
	"time"
)

// Venue identifies the exchange a symbol trades on.
type Venue string

const (
	VenueKRX Venue = "KRX"
	VenueNXT Venue = "NXT"
)

// Session opens and shared close, HHMMSS.
const (
	OpenKRX = "090000"
	OpenNXT = "083000"
	Close   = "153000"
)

// Resolver answers session-time questions for tracked symbols. Symbols in
// the configured NXT set open at 08:30, everything else follows KRX hours.
type Resolver struct {
	mu  sync.RWMutex
	nxt map[string]struct{}

	loc *time.Location

	// now is swappable in tests.
	now func() time.Time
}

// New builds a Resolver for the given NXT symbol list. Times are resolved
// in Asia/Seoul; when the zone database is unavailable a fixed KST offset
// is used instead.
func New(nxtSymbols []string) *Resolver {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.FixedZone("KST", 9*60*60)
	}

	set := make(map[string]struct{}, len(nxtSymbols))
	for _, s := range nxtSymbols {
		set[s] = struct{}{}
	}

	return &Resolver{
		nxt: set,
		loc: loc,
		now: time.Now,
	}
}

// SetClock overrides the wall clock. Tests only.
func (r *Resolver) SetClock(now func() time.Time) {
	r.now = now
}

// Now returns the current time in exchange local time.
func (r *Resolver) Now() time.Time {
	return r.now().In(r.loc)
}

// Day returns the trading-day string for t in exchange local time.
func (r *Resolver) Day(t time.Time) string {
	return t.In(r.loc).Format("20060102")
}

// Clock returns the time of day of t (HHMMSS) in exchange local time.
func (r *Resolver) Clock(t time.Time) string {
	return t.In(r.loc).Format("150405")
}

// Today returns the current trading-day string.
func (r *Resolver) Today() string {
	return r.Day(r.now())
}

// Venue returns the venue the symbol trades on.
func (r *Resolver) Venue(symbol string) Venue {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.nxt[symbol]; ok {
		return VenueNXT
	}
	return VenueKRX
}

// MarkNXT adds a symbol to the NXT set.
func (r *Resolver) MarkNXT(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nxt[symbol] = struct{}{}
}

// SessionOpen returns the opening minute (HHMMSS) for the symbol's venue.
func (r *Resolver) SessionOpen(symbol string) string {
	if r.Venue(symbol) == VenueNXT {
		return OpenNXT
	}
	return OpenKRX
}

// SessionClose returns the closing minute (HHMMSS). Both venues close at
// the same time.
func (r *Resolver) SessionClose(symbol string) string {
	return Close
}

// AfterClose reports whether t is at or past the session close.
func (r *Resolver) AfterClose(t time.Time) bool {
	return r.Clock(t) >= Close
}
