// Package quality checks minute-bar series for structural defects before
// they are committed to a working set.
package quality

import (
	"fmt"

	"github.com/rickgao/intraday-data/internal/model"
)

// maxGapReports caps how many gaps a Result describes.
const maxGapReports = 5

// Result reports the outcome of a continuity check.
type Result struct {
	Valid  bool
	Reason string
	Gaps   []string
}

// Check verifies that a minute series starts at the session open and runs
// with no missing minutes. Duplicate timestamps are tolerated; the series
// is sorted and deduplicated before inspection. An empty series is invalid.
func Check(series model.Series, sessionOpen string) Result {
	bars := series.DedupKeepLast()

	if len(bars) == 0 {
		return Result{Reason: "empty series"}
	}

	first := bars[0]
	if first.Time != sessionOpen {
		return Result{
			Reason: fmt.Sprintf("first bar %s, expected session open %s", first.Time, sessionOpen),
		}
	}

	prev, err := model.MinuteOfDay(first.Time)
	if err != nil {
		return Result{Reason: fmt.Sprintf("unparseable bar time %q", first.Time)}
	}

	var gaps []string
	var total int
	for _, b := range bars[1:] {
		cur, err := model.MinuteOfDay(b.Time)
		if err != nil {
			return Result{Reason: fmt.Sprintf("unparseable bar time %q", b.Time)}
		}
		if cur != prev+1 {
			total++
			if len(gaps) < maxGapReports {
				gaps = append(gaps, fmt.Sprintf("%d missing minute(s) before %s", cur-prev-1, b.Time))
			}
		}
		prev = cur
	}

	if total > 0 {
		return Result{
			Reason: fmt.Sprintf("%d gap(s) detected", total),
			Gaps:   gaps,
		}
	}

	return Result{Valid: true}
}
