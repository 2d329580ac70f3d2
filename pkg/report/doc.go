// Package report renders bootstrap progress and results.
//
// Console prints human readable, optionally colored progress lines. Log forwards
// events to a slog.Logger. Multi fans events out to several reporters. Summary and
// JSON render the final per-target outcome.
package report
