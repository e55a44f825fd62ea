// Package detail is the single-job view controller: it loads one job's full
// record, changes its rating, and runs insight generation through a
// polling.Poller. Load, rating, and insights failures are kept on separate
// error surfaces so one never hides or clears another.
package detail
