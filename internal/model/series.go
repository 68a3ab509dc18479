package model

import "sort"

// Series is an ordered, time-ascending, deduplicated sequence of bars for
// one symbol and one scope (a single trading day for minute bars, an
// open-ended span for daily bars).
//
// The mutating helpers return new slices; a Series held by the registry is
// never modified in place by callers.
type Series []Bar

// Sorted returns a copy of s sorted ascending by timestamp key.
func (s Series) Sorted() Series {
	out := s.Clone()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// DedupKeepLast removes duplicate timestamp keys, keeping the bar that
// appears last in s, and returns the result sorted ascending.
func (s Series) DedupKeepLast() Series {
	if len(s) == 0 {
		return nil
	}
	byKey := make(map[string]Bar, len(s))
	for _, b := range s {
		byKey[b.Key()] = b
	}
	out := make(Series, 0, len(byKey))
	for _, b := range byKey {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key() < out[j].Key()
	})
	return out
}

// Merge concatenates older and newer and deduplicates by timestamp key,
// with bars from newer winning on collision. The result is ascending.
func Merge(older, newer Series) Series {
	combined := make(Series, 0, len(older)+len(newer))
	combined = append(combined, older...)
	combined = append(combined, newer...)
	return combined.DedupKeepLast()
}

// FilterDay returns the bars whose trading day equals day, preserving order.
func (s Series) FilterDay(day string) Series {
	var out Series
	for _, b := range s {
		if b.Day == day {
			out = append(out, b)
		}
	}
	return out
}

// TrimAfter returns the bars at or before the cutoff (HHMMSS), preserving
// order. Daily bars (empty Time) are always kept.
func (s Series) TrimAfter(cutoff string) Series {
	var out Series
	for _, b := range s {
		if b.Time == "" || b.Time <= cutoff {
			out = append(out, b)
		}
	}
	return out
}

// Days returns the distinct trading days present in s.
func (s Series) Days() map[string]struct{} {
	days := make(map[string]struct{}, 1)
	for _, b := range s {
		days[b.Day] = struct{}{}
	}
	return days
}

// Clone returns a copy of s that shares no backing storage.
func (s Series) Clone() Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// First returns the earliest bar, or false when the series is empty.
func (s Series) First() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[0], true
}

// Last returns the latest bar, or false when the series is empty.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}
