// Package history records selection events and persisted bars in
// PostgreSQL for offline analysis.
//
// Recording is fire-and-forget: rows batch in memory and flush by size or
// interval, and a failed flush logs and drops the batch. The pipeline
// never blocks on history.
package history
