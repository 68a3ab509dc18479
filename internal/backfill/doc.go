// Package backfill collects a symbol's minute history from session open
// up to its selection point.
//
// Collection runs as an explicit stage machine: fetch, one time-shifted
// retry, a degraded fallback on the today-chart endpoint, stale-day
// filtering, cutoff trimming, continuity validation, commit. Every
// internal failure routes to the fallback; the fallback commits whatever
// it got, even nothing, so a tracked symbol always ends up with a usable
// (possibly empty) working set. Only a fallback failure aborts the run.
package backfill
