// Package testutil provides fixtures for exercising the dbstrap commands without a
// container runtime.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/stretchr/testify/require"
)

// ProjectFixture is a temporary project directory.
type ProjectFixture struct {
	Dir string
	t   *testing.T
}

// TestProject creates an empty project in a temporary directory.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	// Connection URLs from the developer's shell must not leak into targets.
	t.Setenv("PROD_DB_URL", "")
	t.Setenv("SIM_DB_URL", "")

	return &ProjectFixture{Dir: t.TempDir(), t: t}
}

// WithConfig writes dbstrap.yaml.
func (p *ProjectFixture) WithConfig(yaml string) *ProjectFixture {
	p.t.Helper()
	return p.WithFile(consts.DefaultConfigFile, yaml)
}

// WithCompose writes compose.yml.
func (p *ProjectFixture) WithCompose(yaml string) *ProjectFixture {
	p.t.Helper()
	return p.WithFile(consts.DefaultComposeFile, yaml)
}

// WithScripts writes scripts relative to the default script root.
func (p *ProjectFixture) WithScripts(files map[string]string) *ProjectFixture {
	p.t.Helper()

	for path, content := range files {
		p.WithFile(filepath.Join(consts.DefaultScriptRoot, path), content)
	}

	return p
}

// WithFile writes a file relative to the project directory, creating parents.
func (p *ProjectFixture) WithFile(path, content string) *ProjectFixture {
	p.t.Helper()

	fullPath := filepath.Join(p.Dir, path)
	require.NoError(p.t, os.MkdirAll(filepath.Dir(fullPath), consts.ModeDir))
	require.NoError(p.t, os.WriteFile(fullPath, []byte(content), consts.ModeFile))

	return p
}

// Path returns path joined to the project directory.
func (p *ProjectFixture) Path(path string) string {
	return filepath.Join(p.Dir, path)
}
