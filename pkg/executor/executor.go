package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/scripts"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

type (
	// Executor applies scripts by piping them to psql inside the target's container.
	Executor struct {
		runtime docker.Runtime
		client  string
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// Runtime executes commands in containers
		Runtime docker.Runtime

		// Client is the SQL client executable inside the container. Defaults to psql.
		Client string
	}

	// ExecutionResult contains the result of executing a single script.
	ExecutionResult struct {
		// Path is the script's location on disk
		Path string `json:"path"`

		// Rel is the script's path relative to the script root
		Rel string `json:"script"`

		// Status indicates the outcome of the script execution
		Status ExecutionStatus `json:"status"`

		// ExitCode is psql's exit code, or -1 when it never ran to completion
		ExitCode int `json:"exit_code"`

		// Output is psql's combined stdout and stderr
		Output string `json:"output,omitempty"`

		// Error describes why the script failed
		Error string `json:"error,omitempty"`

		// ExecutionTime records how long the script took to execute
		ExecutionTime time.Duration `json:"duration"`

		// LaunchErr is set when the container runtime itself could not be started
		LaunchErr error `json:"-"`
	}

	// ExecutionStatus represents the outcome of a script execution.
	ExecutionStatus string
)

const (
	// StatusSuccess indicates the script was executed successfully
	StatusSuccess ExecutionStatus = "success"

	// StatusFailed indicates the script execution failed
	StatusFailed ExecutionStatus = "failed"
)

// New creates a new script executor with the provided configuration.
func New(config Config) *Executor {
	client := config.Client
	if client == "" {
		client = "psql"
	}

	return &Executor{
		runtime: config.Runtime,
		client:  client,
	}
}

// Execute runs a single script against the target and reports the outcome. It never
// returns an error; every failure is captured in the result.
func (e *Executor) Execute(ctx context.Context, h *target.Handle, t target.Database, s *scripts.Script) *ExecutionResult {
	start := time.Now()
	res := &ExecutionResult{
		Path:     s.Path,
		Rel:      s.Rel,
		Status:   StatusFailed,
		ExitCode: -1,
	}

	defer func() {
		res.ExecutionTime = time.Since(start)
		slog.Debug("Executed script",
			"target", t.Label,
			"script", s.Rel,
			"status", res.Status,
			"exit_code", res.ExitCode,
			"duration", res.ExecutionTime,
		)
	}()

	f, err := os.Open(s.Path)
	if err != nil {
		res.Error = errors.Wrapf(err, "failed to open script: %s", s.Rel).Error()
		return res
	}
	defer func() { _ = f.Close() }()

	out, err := e.runtime.Exec(ctx, h.ID, docker.ExecRequest{
		Cmd:   e.command(t),
		Env:   env(t),
		Stdin: f,
	})
	if err != nil {
		if runner.IsLaunchError(err) {
			res.LaunchErr = err
		}

		res.Error = errors.Wrapf(err, "failed to execute script: %s", s.Rel).Error()
		return res
	}

	res.ExitCode = out.ExitCode
	res.Output = out.Combined()

	switch {
	case out.TimedOut:
		res.Error = fmt.Sprintf("%s timed out after %s", e.client, out.Duration.Round(time.Millisecond))
	case out.ExitCode != 0:
		res.Error = res.Output
		if res.Error == "" {
			res.Error = fmt.Sprintf("%s exited with code %d", e.client, out.ExitCode)
		}
	default:
		res.Status = StatusSuccess
	}

	return res
}

// Succeeded reports whether the script ran successfully.
func (r *ExecutionResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

func (e *Executor) command(t target.Database) []string {
	return []string{e.client, "-v", "ON_ERROR_STOP=1", "-q", "-U", t.User, "-d", t.Name}
}

func env(t target.Database) []string {
	if t.Password == "" {
		return nil
	}

	return []string{"PGPASSWORD=" + t.Password}
}
