// Package model defines shared data types for the intraday pipeline.
//
// Conventions:
//   - Trading days: YYYYMMDD strings, as delivered by the brokerage
//   - Bar times: HHMMSS strings at minute resolution, empty for daily bars
//   - Prices: float64 won; volumes: int64 shares; turnover: float64 won
//
// Day and time are kept in wire format so that stale-day filtering and
// cutoff comparisons are plain string comparisons, the same way the
// brokerage API keys its responses.
package model
