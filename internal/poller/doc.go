// Package poller schedules incremental updates for every tracked symbol.
//
// Each round lists the working set and dispatches one tick per symbol
// with bounded concurrency. An in-flight set keeps a slow symbol from
// being ticked twice at once. At session close the poller flushes the
// working sets to disk once and goes quiet for the day.
package poller
