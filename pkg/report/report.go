package report

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/fatih/color"
	"github.com/pseudomuto/dbstrap/pkg/bootstrap"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
)

type (
	// Console writes one line per event.
	Console struct {
		mu sync.Mutex
		w  io.Writer
	}

	// Log forwards events to a structured logger.
	Log struct {
		logger *slog.Logger
	}

	// Multi forwards events to every reporter in order.
	Multi []bootstrap.Reporter
)

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Report(e bootstrap.Event) {
	var line string
	switch {
	case e.Kind == bootstrap.EventScript && e.Result != nil && e.Result.Succeeded():
		line = green("  ✓ ") + e.Message
	case e.Kind == bootstrap.EventScript:
		line = red("  ✗ ") + e.Message
	case e.Kind == bootstrap.EventSkipped:
		line = yellow("⏭  ") + e.Message
	case e.State == bootstrap.StateDone:
		line = green("✅ ") + e.Message
	default:
		line = faint("→ ") + e.Message
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "%s %s\n", bold("["+e.Target+"]"), line)
}

// NewLog returns a Log using logger, or slog.Default when nil.
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}

	return &Log{logger: logger}
}

func (l *Log) Report(e bootstrap.Event) {
	attrs := []any{"target", e.Target, "state", string(e.State)}

	switch e.Kind {
	case bootstrap.EventScript:
		attrs = append(attrs, "script", e.Script, "status", string(e.Result.Status), "duration", e.Result.ExecutionTime)
		if !e.Result.Succeeded() {
			l.logger.Warn("Script failed", append(attrs, "exit_code", e.Result.ExitCode, "err", e.Result.Error)...)
			return
		}

		l.logger.Info("Script succeeded", attrs...)
	case bootstrap.EventSkipped:
		l.logger.Info(e.Message, append(attrs, "detail", e.Summary.Detail)...)
	default:
		l.logger.Debug(e.Message, attrs...)
	}
}

func (m Multi) Report(e bootstrap.Event) {
	for _, r := range m {
		r.Report(e)
	}
}
