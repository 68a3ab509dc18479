// Package registry tracks the intraday working set: for each selected
// symbol, the historical bars collected by backfill and the incremental
// bars appended by the updater.
//
// A registry-level RWMutex guards the symbol map; each symbol carries its
// own mutex guarding its working set. Every accessor returns copies, so
// callers never share slices with the registry.
package registry
