package config_test

import (
	"path/filepath"
	"strings"
	"testing"

	. "github.com/pseudomuto/dbstrap/pkg/config"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/stretchr/testify/require"
)

func TestLoadSources(t *testing.T) {
	t.Run("default locations", func(t *testing.T) {
		config := Default()
		config.ProjectDir = filepath.Join("testdata", "project")

		src, err := config.LoadSources()
		require.NoError(t, err)
		require.NotNil(t, src.Compose)
		require.Equal(t, "cleo-spa-app", src.Compose.Name)
		require.Equal(t, "3000", src.Env["PORT"])
		require.Equal(t, "cleo-spa-app", config.ProjectName(src))
	})

	t.Run("nothing present", func(t *testing.T) {
		config := Default()
		config.ProjectDir = t.TempDir()

		src, err := config.LoadSources()
		require.NoError(t, err)
		require.Nil(t, src.Compose)
		require.Nil(t, src.Env)
		require.Empty(t, config.ProjectName(src))
	})

	t.Run("configured files must exist", func(t *testing.T) {
		config := Default()
		config.ComposeFile = filepath.Join(t.TempDir(), "compose.yml")

		_, err := config.LoadSources()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to stat")

		config = Default()
		config.EnvFile = filepath.Join(t.TempDir(), ".env")

		_, err = config.LoadSources()
		require.Error(t, err)
	})

	t.Run("explicit project wins", func(t *testing.T) {
		config := Default()
		config.Project = "mine"
		config.ProjectDir = filepath.Join("testdata", "project")

		src, err := config.LoadSources()
		require.NoError(t, err)
		require.Equal(t, "mine", config.ProjectName(src))
	})
}

func TestResolveTargets(t *testing.T) {
	t.Run("defaults only", func(t *testing.T) {
		t.Setenv("PROD_DB_URL", "")
		t.Setenv("SIM_DB_URL", "")

		targets, err := Default().ResolveTargets(nil)
		require.NoError(t, err)
		require.Equal(t, []target.Database{
			{
				Label: "primary", Service: "db", Name: "my_db",
				User: consts.DefaultUser, Password: consts.DefaultPassword,
				Host: consts.DefaultHost, Port: consts.PostgresPort,
			},
			{
				Label: "sim", Service: "db-sim", Name: "sim_db",
				User: consts.DefaultUser, Password: consts.DefaultPassword,
				Host: consts.DefaultHost, Port: 5433,
			},
		}, targets)
	})

	t.Run("unknown labels default to the postgres port", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader("targets:\n  - label: reports\n    service: reports-db\n    name: reports\n"))
		require.NoError(t, err)

		targets, err := config.ResolveTargets(&Sources{})
		require.NoError(t, err)
		require.Len(t, targets, 1)
		require.Equal(t, consts.DefaultHost, targets[0].Host)
		require.Equal(t, consts.PostgresPort, targets[0].Port)
	})

	t.Run("compose and env file", func(t *testing.T) {
		config := Default()
		config.ProjectDir = filepath.Join("testdata", "project")

		src, err := config.LoadSources()
		require.NoError(t, err)

		targets, err := config.ResolveTargets(src)
		require.NoError(t, err)
		require.Len(t, targets, 2)

		require.Equal(t, target.Database{
			Label: "primary", Service: "db", Name: "cleo_db",
			User: "cleo_user", Password: "cleo_password",
			Host: "localhost", Port: 5432,
		}, targets[0])

		// The compose service has no POSTGRES_DB, so it falls back to the user name.
		require.Equal(t, target.Database{
			Label: "sim", Service: "db-sim", Name: "cleo_user",
			User: "cleo_user", Password: "cleo_password",
			Host: "127.0.0.1", Port: 5433,
		}, targets[1])
	})

	t.Run("env url fills the gaps", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader(`
targets:
  - label: app
    service: postgres
    user: admin
    env_var: APP_URL
`))
		require.NoError(t, err)

		targets, err := config.ResolveTargets(&Sources{
			Env: map[string]string{"APP_URL": "postgres://app:pw@db.local:6543/app_db"},
		})
		require.NoError(t, err)

		// The password belongs to a different role, so it is not borrowed.
		require.Equal(t, []target.Database{{
			Label: "app", Service: "postgres", Name: "app_db",
			User: "admin", Host: "db.local", Port: 6543,
		}}, targets)
	})

	t.Run("process environment", func(t *testing.T) {
		t.Setenv("DBSTRAP_TEST_URL", "postgres://u:p@localhost:7000/envdb")

		config, err := LoadConfig(strings.NewReader("targets:\n  - {label: a, service: db, env_var: DBSTRAP_TEST_URL}\n"))
		require.NoError(t, err)

		targets, err := config.ResolveTargets(&Sources{})
		require.NoError(t, err)
		require.Equal(t, "envdb", targets[0].Name)
		require.Equal(t, 7000, targets[0].Port)
	})

	t.Run("invalid env url", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader("targets:\n  - {label: a, service: db, env_var: BAD_URL}\n"))
		require.NoError(t, err)

		_, err = config.ResolveTargets(&Sources{Env: map[string]string{"BAD_URL": "postgres://u:p@localhost:notaport/db"}})
		require.Error(t, err)
		require.Contains(t, err.Error(), `target "a": invalid BAD_URL`)
	})

	t.Run("incomplete target", func(t *testing.T) {
		config, err := LoadConfig(strings.NewReader("targets:\n  - {label: custom, service: db}\n"))
		require.NoError(t, err)

		_, err = config.ResolveTargets(nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), `target "custom" is missing database`)
	})
}
