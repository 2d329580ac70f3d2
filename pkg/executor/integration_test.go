package executor_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/detector"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/docker/dockertest"
	. "github.com/pseudomuto/dbstrap/pkg/executor"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/scripts"
	"github.com/stretchr/testify/require"
)

func TestExecute_Integration(t *testing.T) {
	pg := dockertest.StartPostgres(t, db)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "schema.sql"), []byte(`
CREATE TABLE employees (id serial PRIMARY KEY, name text NOT NULL);
CREATE TABLE members (id serial PRIMARY KEY, name text NOT NULL);
CREATE TABLE services (id serial PRIMARY KEY, name text NOT NULL);
`), consts.ModeFile))
	require.NoError(t, os.WriteFile(filepath.Join(root, "broken.sql"), []byte(`
INSERT INTO employees (name) VALUES ('ok');
INSERT INTO nope (name) VALUES ('fails');
`), consts.ModeFile))

	list, err := scripts.Discover(root)
	require.NoError(t, err)
	require.Len(t, list, 2)

	rt := docker.NewCLI(runner.New(), docker.CLIOptions{Timeout: time.Minute})
	exec := New(Config{Runtime: rt})
	counter := detector.New(detector.NewExecCounter(rt), detector.Config{})

	require.False(t, counter.IsInitialized(ctx, pg.Handle(), pg.Database()))

	res := exec.Execute(ctx, pg.Handle(), pg.Database(), list[0])
	require.True(t, res.Succeeded(), res.Error)

	res = exec.Execute(ctx, pg.Handle(), pg.Database(), list[1])
	require.False(t, res.Succeeded())
	require.Contains(t, res.Error, `relation "nope" does not exist`)

	require.True(t, counter.IsInitialized(ctx, pg.Handle(), pg.Database()))
}
