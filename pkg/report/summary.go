package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/bootstrap"
)

// Totals aggregates summaries.
type Totals struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Tally adds up the outcome of every summary.
func Tally(summaries []*bootstrap.TargetSummary) Totals {
	var t Totals
	for _, s := range summaries {
		t.Succeeded += s.SuccessCount
		t.Failed += s.FailureCount
		if s.Skipped {
			t.Skipped++
		}
	}

	return t
}

// Summary writes a per-target outcome followed by totals.
//
// Example output:
//
//	Bootstrap summary
//	  ✅ primary (db/my_db): 2 succeeded, 0 failed
//	  ❌ sim (db-sim/sim_db): 1 succeeded, 1 failed
//	       ✗ employees/seed.sql: ERROR:  relation "employees" does not exist
//	  ⏭  ghost (ghost/ghost): skipped (container not found)
//
//	Totals: 3 succeeded, 1 failed, 1 skipped
func Summary(w io.Writer, summaries []*bootstrap.TargetSummary) error {
	if _, err := fmt.Fprintln(w, bold("Bootstrap summary")); err != nil {
		return err
	}

	for _, s := range summaries {
		name := fmt.Sprintf("%s (%s/%s)", s.Label, s.Service, s.Database)

		var err error
		switch {
		case s.Skipped:
			_, err = fmt.Fprintf(w, "  %s %s: skipped (%s)\n", yellow("⏭ "), name, s.SkipReason)
		case s.FailureCount > 0:
			_, err = fmt.Fprintf(w, "  %s %s: %d succeeded, %d failed\n", red("❌"), name, s.SuccessCount, s.FailureCount)
		default:
			_, err = fmt.Fprintf(w, "  %s %s: %d succeeded, %d failed\n", green("✅"), name, s.SuccessCount, s.FailureCount)
		}

		if err != nil {
			return err
		}

		for _, r := range s.Results {
			if r.Succeeded() {
				continue
			}

			if _, err := fmt.Fprintf(w, "       %s %s: %s\n", red("✗"), r.Rel, firstLine(r.Error)); err != nil {
				return err
			}
		}
	}

	t := Tally(summaries)
	_, err := fmt.Fprintf(w, "\nTotals: %d succeeded, %d failed, %d skipped\n", t.Succeeded, t.Failed, t.Skipped)
	return err
}

// JSON writes the summaries and totals as an indented JSON document.
func JSON(w io.Writer, summaries []*bootstrap.TargetSummary) error {
	if summaries == nil {
		summaries = []*bootstrap.TargetSummary{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(struct {
		Targets []*bootstrap.TargetSummary `json:"targets"`
		Totals  Totals                     `json:"totals"`
	}{
		Targets: summaries,
		Totals:  Tally(summaries),
	}), "failed to encode summary")
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}

	return s
}
