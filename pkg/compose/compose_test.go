package compose_test

import (
	"path/filepath"
	"strings"
	"testing"

	. "github.com/pseudomuto/dbstrap/pkg/compose"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	f, err := LoadFile(filepath.Join("testdata", "compose.yml"))
	require.NoError(t, err)
	require.Equal(t, "cleo-spa-app", f.Name)
	require.Len(t, f.Services, 3)

	t.Run("mapping environment and short ports", func(t *testing.T) {
		db, ok := f.Database("db")
		require.True(t, ok)
		require.Equal(t, "db", db.Service)
		require.Equal(t, "cleo_db", db.Name)
		require.Equal(t, "cleo_user", db.User)
		require.Equal(t, "cleo_password", db.Password)
		require.Equal(t, 5432, db.Port)
	})

	t.Run("list environment and long ports", func(t *testing.T) {
		db, ok := f.Database("db-sim")
		require.True(t, ok)
		require.Equal(t, "sim_db", db.Name)
		require.Equal(t, 5433, db.Port)
	})

	t.Run("ports with host ip and protocol", func(t *testing.T) {
		require.Equal(t, []Port{{Published: 6379, Target: 6379}}, f.Services["cache"].Ports)
	})

	t.Run("unknown service", func(t *testing.T) {
		_, ok := f.Database("web")
		require.False(t, ok)
	})
}

func TestLoad(t *testing.T) {
	t.Run("database defaults to user", func(t *testing.T) {
		f, err := Load(strings.NewReader(`
services:
  db:
    environment:
      POSTGRES_USER: app
      POSTGRES_PASSWORD: 1234
    ports: ["5432"]
`))
		require.NoError(t, err)

		db, ok := f.Database("db")
		require.True(t, ok)
		require.Equal(t, "app", db.Name)
		require.Equal(t, "1234", db.Password)
		require.Zero(t, db.Port)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := Load(strings.NewReader("services: ["))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to unmarshal compose file")
	})

	t.Run("invalid environment", func(t *testing.T) {
		_, err := Load(strings.NewReader("services:\n  db:\n    environment: nope\n"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "environment must be a mapping or a list")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "compose.yml"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to open compose file")
	})
}
