package cmd

import (
	"testing"

	"github.com/pseudomuto/dbstrap/pkg/cmd/testutil"
	"github.com/pseudomuto/dbstrap/pkg/config"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/stretchr/testify/require"
)

func TestInitCommand(t *testing.T) {
	p := testutil.TestProject(t)
	t.Chdir(p.Dir)

	out, err := testutil.RunCommand(t, initCmd())
	require.NoError(t, err)
	require.Equal(t, "Wrote dbstrap.yaml\n", out)

	testutil.RequireFileExists(t, p.Path(consts.DefaultConfigFile),
		testutil.RequireFileContains(t, "script_root: server/db"),
		testutil.RequireFileContains(t, "env_var: PROD_DB_URL"),
	)

	cfg, err := config.LoadConfigFile(consts.DefaultConfigFile)
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)

	_, err = testutil.RunCommand(t, initCmd())
	testutil.RequireError(t, err, "dbstrap.yaml already exists")

	_, err = testutil.RunCommand(t, initCmd(), "--force")
	require.NoError(t, err)
}
