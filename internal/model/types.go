package model

import (
	"fmt"
	"time"
)

// Bar is one OHLCV observation at minute or day granularity.
type Bar struct {
	Day      string  // Trading day (YYYYMMDD)
	Time     string  // Bar minute (HHMMSS), empty for daily bars
	Open     float64 // Opening price
	High     float64 // Highest price
	Low      float64 // Lowest price
	Close    float64 // Closing price
	Volume   int64   // Traded shares within the bar
	Turnover float64 // Cumulative traded value for the day, 0 if not provided
}

// Key returns the timestamp key used for ordering and deduplication.
func (b Bar) Key() string {
	return b.Day + b.Time
}

// Plausible reports whether the OHLC values are internally consistent
// (high >= max(open, close), min(open, close) >= low >= 0). The pipeline
// does not enforce this; downstream consumers assume it within data-quality
// tolerance.
func (b Bar) Plausible() bool {
	hi := b.Open
	if b.Close > hi {
		hi = b.Close
	}
	lo := b.Open
	if b.Close < lo {
		lo = b.Close
	}
	return b.High >= hi && lo >= b.Low && b.Low >= 0
}

// DayOf formats t as a trading-day string.
func DayOf(t time.Time) string {
	return t.Format("20060102")
}

// ClockOf formats the time of day of t as HHMMSS.
func ClockOf(t time.Time) string {
	return t.Format("150405")
}

// MinuteOfDay converts an HHMMSS string to minutes since midnight.
func MinuteOfDay(hhmmss string) (int, error) {
	t, err := time.Parse("150405", hhmmss)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", hhmmss, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// AddMinutes shifts an HHMMSS string by n minutes, dropping seconds.
// The result stays within a single day; callers cap against venue close
// before crossing midnight becomes possible.
func AddMinutes(hhmmss string, n int) (string, error) {
	t, err := time.Parse("150405", hhmmss)
	if err != nil {
		return "", fmt.Errorf("parse time %q: %w", hhmmss, err)
	}
	return t.Truncate(time.Minute).Add(time.Duration(n) * time.Minute).Format("150405"), nil
}
