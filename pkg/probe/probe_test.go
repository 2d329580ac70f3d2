package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/docker/dockertest"
	. "github.com/pseudomuto/dbstrap/pkg/probe"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/stretchr/testify/require"
)

type scriptedCheck struct {
	errs  []error
	calls int
}

func (c *scriptedCheck) Check(context.Context, *target.Handle, target.Database) error {
	c.calls++
	if c.calls <= len(c.errs) {
		return c.errs[c.calls-1]
	}

	return nil
}

var (
	handle = &target.Handle{Service: "db", ID: "abc"}
	db     = target.Database{Label: "primary", Service: "db", Name: "my_db", User: "user"}
)

func TestWaitUntilReady(t *testing.T) {
	ctx := context.Background()
	notReady := errors.New("no response")

	t.Run("ready on first attempt", func(t *testing.T) {
		check := &scriptedCheck{}
		ready, err := New(check, Config{MaxAttempts: 3, Interval: time.Millisecond}).WaitUntilReady(ctx, handle, db)
		require.NoError(t, err)
		require.True(t, ready)
		require.Equal(t, 1, check.calls)
	})

	t.Run("ready after retries", func(t *testing.T) {
		check := &scriptedCheck{errs: []error{notReady, notReady}}
		var retries []int

		p := New(check, Config{
			MaxAttempts: 5,
			Interval:    time.Millisecond,
			OnRetry:     func(attempt int, _ error) { retries = append(retries, attempt) },
		})

		ready, err := p.WaitUntilReady(ctx, handle, db)
		require.NoError(t, err)
		require.True(t, ready)
		require.Equal(t, 3, check.calls)
		require.Equal(t, []int{1, 2}, retries)
	})

	t.Run("gives up after max attempts without a trailing sleep", func(t *testing.T) {
		check := &scriptedCheck{errs: []error{notReady, notReady, notReady, notReady}}
		interval := 100 * time.Millisecond

		start := time.Now()
		ready, err := New(check, Config{MaxAttempts: 3, Interval: interval}).WaitUntilReady(ctx, handle, db)
		elapsed := time.Since(start)

		require.NoError(t, err)
		require.False(t, ready)
		require.Equal(t, 3, check.calls)
		require.GreaterOrEqual(t, elapsed, 2*interval)
		require.Less(t, elapsed, 3*interval)
	})

	t.Run("launch errors stop immediately", func(t *testing.T) {
		check := &scriptedCheck{errs: []error{&runner.ProcessLaunchError{Name: "docker", Err: notReady}}}

		ready, err := New(check, Config{MaxAttempts: 5, Interval: time.Millisecond}).WaitUntilReady(ctx, handle, db)
		require.False(t, ready)
		require.True(t, runner.IsLaunchError(err))
		require.Equal(t, 1, check.calls)
	})

	t.Run("budget longer than the backoff default elapsed cap", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		check := &scriptedCheck{errs: []error{notReady, notReady, notReady}}

		ready, err := New(check, Config{MaxAttempts: 3, Interval: 20 * time.Minute}).WaitUntilReady(cctx, handle, db)
		require.False(t, ready)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 1, check.calls)
	})

	t.Run("zero interval uses the default", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()
		check := &scriptedCheck{errs: []error{notReady, notReady, notReady}}

		ready, err := New(check, Config{MaxAttempts: 3}).WaitUntilReady(cctx, handle, db)
		require.False(t, ready)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.Equal(t, 1, check.calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		check := &scriptedCheck{errs: []error{notReady, notReady, notReady}}

		p := New(check, Config{
			MaxAttempts: 10,
			Interval:    time.Hour,
			OnRetry:     func(int, error) { cancel() },
		})

		ready, err := p.WaitUntilReady(cctx, handle, db)
		require.False(t, ready)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestExecCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("ready", func(t *testing.T) {
		rt := &dockertest.Runtime{}
		require.NoError(t, NewExecCheck(rt).Check(ctx, handle, db))

		execs := rt.Execs()
		require.Len(t, execs, 1)
		require.Equal(t, "abc", execs[0].ID)
		require.Equal(t, []string{"pg_isready", "-U", "user", "-d", "my_db"}, execs[0].Cmd)
	})

	t.Run("not ready", func(t *testing.T) {
		rt := &dockertest.Runtime{
			ExecFunc: func(context.Context, string, dockertest.ExecCall) (*runner.Result, error) {
				return &runner.Result{ExitCode: 2, Stdout: "/var/run/postgresql:5432 - no response"}, nil
			},
		}

		err := NewExecCheck(rt).Check(ctx, handle, db)
		require.EqualError(t, err, "pg_isready exited with code 2: /var/run/postgresql:5432 - no response")
	})
}
