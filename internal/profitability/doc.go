// Package profitability derives margin metrics for a portfolio of items,
// places every item on a margin/sales matrix split at the portfolio medians
// and aggregates the result per category and per portfolio.
//
// The package is pure: it performs no I/O, keeps no state between calls and
// never mutates its input. Each call to Analyze works on its own snapshot, so
// thresholds computed for one dataset can never leak into another.
package profitability
