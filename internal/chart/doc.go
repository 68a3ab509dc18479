// Package chart fetches minute and daily candles from the brokerage
// chart API.
//
// The API pages minute history at most 120 rows per call, newest first,
// and serves the current session's tail at most 30 rows per call. Rows
// arrive as strings in wire format; conversion keeps day and time strings
// as-is and parses prices and volumes.
package chart
