package detector_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	. "github.com/pseudomuto/dbstrap/pkg/detector"
	"github.com/pseudomuto/dbstrap/pkg/docker/dockertest"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/stretchr/testify/require"
)

type fixedCounter struct {
	count  int
	err    error
	schema string
	tables []string
}

func (c *fixedCounter) CountTables(_ context.Context, _ *target.Handle, _ target.Database, schema string, tables []string) (int, error) {
	c.schema = schema
	c.tables = tables
	return c.count, c.err
}

var (
	handle = &target.Handle{Service: "db", ID: "abc"}
	db     = target.Database{Label: "primary", Service: "db", Name: "my_db", User: "user", Password: "password"}
)

func TestIsInitialized(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		counter  *fixedCounter
		expected bool
	}{
		{name: "all tables present", counter: &fixedCounter{count: 3}, expected: true},
		{name: "extra matches", counter: &fixedCounter{count: 4}, expected: true},
		{name: "partially initialized", counter: &fixedCounter{count: 2}, expected: false},
		{name: "empty database", counter: &fixedCounter{count: 0}, expected: false},
		{name: "inspection failure", counter: &fixedCounter{count: 3, err: errors.New("boom")}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(tt.counter, Config{})
			require.Equal(t, tt.expected, d.IsInitialized(ctx, handle, db))
			require.Equal(t, "public", tt.counter.schema)
			require.Equal(t, []string{"employees", "members", "services"}, tt.counter.tables)
		})
	}

	t.Run("custom baseline", func(t *testing.T) {
		counter := &fixedCounter{count: 1}
		d := New(counter, Config{Schema: "app", Tables: []string{"users"}})
		require.True(t, d.IsInitialized(ctx, handle, db))
		require.Equal(t, "app", counter.schema)
	})

	t.Run("empty baseline", func(t *testing.T) {
		counter := &fixedCounter{count: 0}
		d := New(counter, Config{Tables: []string{}})
		require.False(t, d.IsInitialized(ctx, handle, db))
	})
}

func TestExecCounter(t *testing.T) {
	ctx := context.Background()

	t.Run("parses psql output", func(t *testing.T) {
		rt := &dockertest.Runtime{
			ExecFunc: func(context.Context, string, dockertest.ExecCall) (*runner.Result, error) {
				return &runner.Result{Stdout: "3\n"}, nil
			},
		}

		n, err := NewExecCounter(rt).CountTables(ctx, handle, db, "public", []string{"employees", "members"})
		require.NoError(t, err)
		require.Equal(t, 3, n)

		execs := rt.Execs()
		require.Len(t, execs, 1)
		require.Equal(t, []string{"PGPASSWORD=password"}, execs[0].Env)
		require.Equal(t, []string{
			"psql", "-tA", "-U", "user", "-d", "my_db", "-c",
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name IN ('employees', 'members')",
		}, execs[0].Cmd)
	})

	t.Run("psql failure", func(t *testing.T) {
		rt := &dockertest.Runtime{
			ExecFunc: func(context.Context, string, dockertest.ExecCall) (*runner.Result, error) {
				return &runner.Result{ExitCode: 2, Stderr: `FATAL: database "my_db" does not exist`}, nil
			},
		}

		_, err := NewExecCounter(rt).CountTables(ctx, handle, db, "public", []string{"employees"})
		require.EqualError(t, err, `psql exited with code 2: FATAL: database "my_db" does not exist`)
	})

	t.Run("garbage output", func(t *testing.T) {
		rt := &dockertest.Runtime{
			ExecFunc: func(context.Context, string, dockertest.ExecCall) (*runner.Result, error) {
				return &runner.Result{Stdout: "count\n"}, nil
			},
		}

		_, err := NewExecCounter(rt).CountTables(ctx, handle, db, "public", []string{"employees"})
		require.Error(t, err)
		require.Contains(t, err.Error(), "unexpected table count output")
	})
}

func TestCountQuery(t *testing.T) {
	require.Equal(t,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name IN ('o''brien')",
		CountQuery("public", []string{"o'brien"}),
	)
}
