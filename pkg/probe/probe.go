// Package probe waits for a database inside a container to accept connections.
//
// A Prober repeats a single Check at a fixed interval until it succeeds or the
// attempt budget runs out. Two checks are available: ExecCheck runs pg_isready
// inside the container, HostCheck connects over the published port with pgx.
package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/postgres"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

type (
	// Check performs one readiness attempt. A nil error means ready.
	Check interface {
		Check(ctx context.Context, h *target.Handle, t target.Database) error
	}

	// Config controls the retry loop. Zero values select the defaults.
	Config struct {
		MaxAttempts int
		Interval    time.Duration

		// OnRetry is invoked after each failed attempt that will be retried.
		OnRetry func(attempt int, err error)
	}

	// Prober repeats a Check until the database is ready.
	Prober struct {
		check Check
		cfg   Config
	}

	// ExecCheck runs pg_isready inside the container.
	ExecCheck struct {
		runtime docker.Runtime
	}

	// HostCheck pings the database over its published port.
	HostCheck struct {
		client *postgres.Client
	}
)

// New creates a Prober.
//
// Example usage:
//
//	p := probe.New(probe.NewExecCheck(rt), probe.Config{MaxAttempts: 30, Interval: 2 * time.Second})
//	ready, err := p.WaitUntilReady(ctx, handle, db)
func New(check Check, cfg Config) *Prober {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = consts.DefaultMaxAttempts
	}

	if cfg.Interval <= 0 {
		cfg.Interval = consts.DefaultProbeInterval
	}

	return &Prober{check: check, cfg: cfg}
}

// WaitUntilReady returns true once the check succeeds and false when every attempt
// failed. No sleep happens after the final attempt. An error is only returned when
// the runtime can't be launched or ctx is done.
func (p *Prober) WaitUntilReady(ctx context.Context, h *target.Handle, t target.Database) (bool, error) {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := p.check.Check(ctx, h, t)
		if err != nil && runner.IsLaunchError(err) {
			return struct{}{}, backoff.Permanent(err)
		}

		return struct{}{}, err
	}

	notify := func(err error, next time.Duration) {
		slog.Debug("Database not ready", "target", t.Label, "attempt", attempt, "max", p.cfg.MaxAttempts, "retry_in", next, "err", err)
		if p.cfg.OnRetry != nil {
			p.cfg.OnRetry(attempt, err)
		}
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.cfg.Interval)),
		backoff.WithMaxTries(uint(p.cfg.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(notify),
	)

	switch {
	case err == nil:
		slog.Debug("Database ready", "target", t.Label, "attempts", attempt)
		return true, nil
	case runner.IsLaunchError(err):
		return false, err
	case ctx.Err() != nil:
		return false, ctx.Err()
	default:
		slog.Debug("Database never became ready", "target", t.Label, "attempts", attempt, "err", err)
		return false, nil
	}
}

// NewExecCheck returns a Check running pg_isready inside the container.
func NewExecCheck(rt docker.Runtime) *ExecCheck {
	return &ExecCheck{runtime: rt}
}

func (c *ExecCheck) Check(ctx context.Context, h *target.Handle, t target.Database) error {
	res, err := c.runtime.Exec(ctx, h.ID, docker.ExecRequest{
		Cmd: []string{"pg_isready", "-U", t.User, "-d", t.Name},
	})
	if err != nil {
		return err
	}

	if !res.Success() {
		return errors.Errorf("pg_isready exited with code %d: %s", res.ExitCode, res.Combined())
	}

	return nil
}

// NewHostCheck returns a Check connecting with client.
func NewHostCheck(client *postgres.Client) *HostCheck {
	return &HostCheck{client: client}
}

func (c *HostCheck) Check(ctx context.Context, _ *target.Handle, t target.Database) error {
	return c.client.Ping(ctx, t)
}
