package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is killed.
const waitDelay = time.Second

type (
	// Runner executes a single external command.
	Runner interface {
		Run(context.Context, Command) (*Result, error)
	}

	// Command describes a process to launch.
	Command struct {
		// Name is the executable, resolved through PATH.
		Name string

		// Args are passed to the executable verbatim.
		Args []string

		// Stdin, when set, is streamed to the process.
		Stdin io.Reader

		// Timeout kills the process once exceeded. Zero means no timeout.
		Timeout time.Duration
	}

	// Result is the outcome of a process that was started.
	Result struct {
		ExitCode int
		Stdout   string
		Stderr   string
		TimedOut bool
		Duration time.Duration
	}

	// ProcessLaunchError indicates the process could not be started at all, typically
	// because the executable is missing or not executable.
	ProcessLaunchError struct {
		Name string
		Err  error
	}

	// Exec is the os/exec backed Runner.
	Exec struct{}
)

// New returns a Runner backed by os/exec.
func New() *Exec {
	return &Exec{}
}

// Run launches the command and waits for it to exit.
//
// A non-zero exit or an elapsed Timeout is reported through the Result and never as
// an error. Errors are returned when the process cannot be launched
// (*ProcessLaunchError) or when the parent context is cancelled.
func (e *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx := ctx
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, c.Name, c.Args...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, &ProcessLaunchError{Name: c.Name, Err: err}
	}

	err := cmd.Wait()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		res.ExitCode = -1
		return res, ctx.Err()
	}

	if runCtx.Err() != nil {
		res.ExitCode = -1
		res.TimedOut = true
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	return res, errors.Wrapf(err, "failed waiting for %s", c.Name)
}

// Combined returns stdout followed by stderr, trimmed, for use in failure messages.
func (r *Result) Combined() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)

	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Success reports whether the process exited cleanly within its deadline.
func (r *Result) Success() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

func (e *ProcessLaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Name, e.Err)
}

func (e *ProcessLaunchError) Unwrap() error {
	return e.Err
}

// IsLaunchError reports whether err, or anything it wraps, is a *ProcessLaunchError.
func IsLaunchError(err error) bool {
	var le *ProcessLaunchError
	return errors.As(err, &le)
}

// String renders the command for logs. Values of environment assignments that look
// like secrets are masked.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		parts = append(parts, redact(arg))
	}

	return strings.Join(parts, " ")
}

func redact(arg string) string {
	key, _, ok := strings.Cut(arg, "=")
	if ok && strings.Contains(strings.ToUpper(key), "PASSWORD") {
		return key + "=***"
	}

	return arg
}
