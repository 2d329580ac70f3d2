// Package detector decides whether a database has already been bootstrapped by
// checking for a set of baseline tables.
package detector

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/postgres"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

type (
	// Counter returns how many of tables exist in schema.
	Counter interface {
		CountTables(ctx context.Context, h *target.Handle, t target.Database, schema string, tables []string) (int, error)
	}

	// Config selects the baseline tables. Zero values select the defaults.
	Config struct {
		Schema string
		Tables []string
	}

	// Detector reports whether a target is already initialized.
	Detector struct {
		counter Counter
		schema  string
		tables  []string
	}

	// ExecCounter queries information_schema with psql inside the container.
	ExecCounter struct {
		runtime docker.Runtime
	}

	// HostCounter queries information_schema over the published port.
	HostCounter struct {
		client *postgres.Client
	}
)

// New creates a Detector.
//
// Example usage:
//
//	d := detector.New(detector.NewExecCounter(rt), detector.Config{})
//	if d.IsInitialized(ctx, handle, db) {
//		// skip bootstrapping
//	}
func New(counter Counter, cfg Config) *Detector {
	if cfg.Schema == "" {
		cfg.Schema = consts.DefaultSchema
	}

	if cfg.Tables == nil {
		cfg.Tables = consts.DefaultBaselineTables
	}

	return &Detector{
		counter: counter,
		schema:  cfg.Schema,
		tables:  cfg.Tables,
	}
}

// Tables returns the baseline tables checked.
func (d *Detector) Tables() []string {
	return d.tables
}

// IsInitialized returns true when every baseline table exists. Any failure to
// inspect the database is treated as not initialized so that bootstrapping
// proceeds. An empty baseline never counts as initialized.
func (d *Detector) IsInitialized(ctx context.Context, h *target.Handle, t target.Database) bool {
	if len(d.tables) == 0 {
		return false
	}

	n, err := d.counter.CountTables(ctx, h, t, d.schema, d.tables)
	if err != nil {
		slog.Warn("Unable to inspect database state, assuming uninitialized", "target", t.Label, "err", err)
		return false
	}

	slog.Debug("Baseline tables found", "target", t.Label, "found", n, "expected", len(d.tables))
	return n >= len(d.tables)
}

// NewExecCounter returns a Counter running psql inside the container.
func NewExecCounter(rt docker.Runtime) *ExecCounter {
	return &ExecCounter{runtime: rt}
}

func (c *ExecCounter) CountTables(ctx context.Context, h *target.Handle, t target.Database, schema string, tables []string) (int, error) {
	req := docker.ExecRequest{
		Cmd: []string{"psql", "-tA", "-U", t.User, "-d", t.Name, "-c", CountQuery(schema, tables)},
	}

	if t.Password != "" {
		req.Env = []string{"PGPASSWORD=" + t.Password}
	}

	res, err := c.runtime.Exec(ctx, h.ID, req)
	if err != nil {
		return 0, err
	}

	if !res.Success() {
		return 0, errors.Errorf("psql exited with code %d: %s", res.ExitCode, res.Combined())
	}

	n, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		return 0, errors.Wrapf(err, "unexpected table count output: %q", res.Stdout)
	}

	return n, nil
}

// NewHostCounter returns a Counter connecting with client.
func NewHostCounter(client *postgres.Client) *HostCounter {
	return &HostCounter{client: client}
}

func (c *HostCounter) CountTables(ctx context.Context, _ *target.Handle, t target.Database, schema string, tables []string) (int, error) {
	return c.client.CountTables(ctx, t, schema, tables)
}

// CountQuery renders the information_schema query used inside the container.
func CountQuery(schema string, tables []string) string {
	quoted := make([]string, len(tables))
	for i, table := range tables {
		quoted[i] = quote(table)
	}

	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = " + quote(schema) +
		" AND table_name IN (" + strings.Join(quoted, ", ") + ")"
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
