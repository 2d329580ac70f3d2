package report_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/fatih/color"
	"github.com/pseudomuto/dbstrap/pkg/bootstrap"
	"github.com/pseudomuto/dbstrap/pkg/executor"
	. "github.com/pseudomuto/dbstrap/pkg/report"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func summaries() []*bootstrap.TargetSummary {
	return []*bootstrap.TargetSummary{
		{
			Label:        "primary",
			Service:      "db",
			Database:     "my_db",
			State:        bootstrap.StateDone,
			SuccessCount: 2,
			Results: []*executor.ExecutionResult{
				{Rel: "schema.sql", Status: executor.StatusSuccess},
				{Rel: "a/x.sql", Status: executor.StatusSuccess},
			},
		},
		{
			Label:        "sim",
			Service:      "db-sim",
			Database:     "sim_db",
			State:        bootstrap.StateDone,
			SuccessCount: 1,
			FailureCount: 1,
			Results: []*executor.ExecutionResult{
				{Rel: "schema.sql", Status: executor.StatusSuccess},
				{Rel: "a/x.sql", Status: executor.StatusFailed, ExitCode: 3, Error: "ERROR:  relation \"nope\" does not exist\nLINE 1: INSERT INTO nope"},
			},
		},
		{
			Label:      "ghost",
			Service:    "ghost",
			Database:   "ghost",
			State:      bootstrap.StateSkipped,
			Skipped:    true,
			SkipReason: bootstrap.ReasonContainerNotFound,
		},
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary(&buf, summaries()))
	golden.Assert(t, buf.String(), "summary.golden")
}

func TestTally(t *testing.T) {
	require.Equal(t, Totals{Succeeded: 3, Failed: 1, Skipped: 1}, Tally(summaries()))
	require.Equal(t, Totals{}, Tally(nil))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, summaries()))

	var doc struct {
		Targets []map[string]any `json:"targets"`
		Totals  Totals           `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Targets, 3)
	require.Equal(t, "primary", doc.Targets[0]["label"])
	require.Equal(t, "container not found", doc.Targets[2]["skip_reason"])
	require.Equal(t, true, doc.Targets[2]["skipped"])
	require.Equal(t, Totals{Succeeded: 3, Failed: 1, Skipped: 1}, doc.Totals)

	buf.Reset()
	require.NoError(t, JSON(&buf, nil))
	require.Contains(t, buf.String(), `"targets": []`)
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.Report(bootstrap.Event{Kind: bootstrap.EventState, Target: "primary", State: bootstrap.StateResolving, Message: `Resolving container for service "db"`})
	c.Report(bootstrap.Event{
		Kind:    bootstrap.EventScript,
		Target:  "primary",
		State:   bootstrap.StateExecuting,
		Message: "schema.sql succeeded in 12ms",
		Result:  &executor.ExecutionResult{Rel: "schema.sql", Status: executor.StatusSuccess},
	})
	c.Report(bootstrap.Event{
		Kind:    bootstrap.EventScript,
		Target:  "primary",
		State:   bootstrap.StateExecuting,
		Message: "z.sql failed: boom",
		Result:  &executor.ExecutionResult{Rel: "z.sql", Status: executor.StatusFailed},
	})
	c.Report(bootstrap.Event{Kind: bootstrap.EventState, Target: "primary", State: bootstrap.StateDone, Message: "Completed: 1 succeeded, 1 failed"})
	c.Report(bootstrap.Event{Kind: bootstrap.EventSkipped, Target: "sim", State: bootstrap.StateSkipped, Message: "Skipped: not ready"})

	require.Equal(t, `[primary] → Resolving container for service "db"
[primary]   ✓ schema.sql succeeded in 12ms
[primary]   ✗ z.sql failed: boom
[primary] ✅ Completed: 1 succeeded, 1 failed
[sim] ⏭  Skipped: not ready
`, buf.String())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := NewLog(logger)

	summary := &bootstrap.TargetSummary{Label: "sim", Detail: "no running container"}
	l.Report(bootstrap.Event{Kind: bootstrap.EventSkipped, Target: "sim", State: bootstrap.StateSkipped, Message: "Skipped: container not found", Summary: summary})
	l.Report(bootstrap.Event{
		Kind:   bootstrap.EventScript,
		Target: "primary",
		State:  bootstrap.StateExecuting,
		Script: "z.sql",
		Result: &executor.ExecutionResult{Rel: "z.sql", Status: executor.StatusFailed, ExitCode: 3, Error: "boom"},
	})

	out := buf.String()
	require.Contains(t, out, `level=INFO msg="Skipped: container not found" target=sim state=skipped detail="no running container"`)
	require.Contains(t, out, `level=WARN msg="Script failed" target=primary state=executing script=z.sql status=failed`)
	require.Contains(t, out, `exit_code=3 err=boom`)
}

func TestMulti(t *testing.T) {
	var a, b []string
	m := Multi{
		bootstrap.ReporterFunc(func(e bootstrap.Event) { a = append(a, e.Message) }),
		bootstrap.ReporterFunc(func(e bootstrap.Event) { b = append(b, e.Message) }),
	}

	m.Report(bootstrap.Event{Message: "hello"})
	require.Equal(t, []string{"hello"}, a)
	require.Equal(t, []string{"hello"}, b)
}
