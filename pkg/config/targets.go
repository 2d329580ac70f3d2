package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/compose"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/postgres"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

var (
	composeFileNames = []string{consts.DefaultComposeFile, "compose.yaml", "docker-compose.yml", "docker-compose.yaml"}

	defaultDatabases = map[string]string{
		"primary": "my_db",
		"sim":     "sim_db",
	}

	defaultPorts = map[string]int{
		"primary": consts.PostgresPort,
		"sim":     5433,
	}
)

// Sources are the files database targets are completed from. Either may be nil.
type Sources struct {
	Compose *compose.File
	Env     map[string]string
}

// LoadSources reads the compose file and the env file. Configured paths must exist;
// the default locations are used only when present.
func (c *Config) LoadSources() (*Sources, error) {
	src := &Sources{}

	if path, ok, err := c.locate(c.ComposeFile, composeFileNames...); err != nil {
		return nil, err
	} else if ok {
		f, err := compose.LoadFile(path)
		if err != nil {
			return nil, err
		}
		src.Compose = f
	}

	if path, ok, err := c.locate(c.EnvFile, consts.DefaultEnvFile); err != nil {
		return nil, err
	} else if ok {
		env, err := godotenv.Read(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read env file: %s", path)
		}
		src.Env = env
	}

	return src, nil
}

// ProjectName returns the configured compose project name, falling back to the name
// declared in the compose file. Empty means it should be derived from ProjectDir.
func (c *Config) ProjectName(src *Sources) string {
	if c.Project != "" {
		return c.Project
	}

	if src != nil && src.Compose != nil {
		return src.Compose.Name
	}

	return ""
}

// ResolveTargets completes every configured target. Values are taken, in order of
// precedence, from dbstrap.yaml, the compose service definition, the target's
// connection URL in the env file (or process environment) and the defaults.
func (c *Config) ResolveTargets(src *Sources) ([]target.Database, error) {
	if src == nil {
		src = &Sources{}
	}

	out := make([]target.Database, 0, len(c.Targets))
	for _, t := range c.Targets {
		db := t.Database

		if src.Compose != nil {
			if svc, ok := src.Compose.Database(db.Service); ok {
				merge(&db, svc)
			}
		}

		if url := src.lookup(t.EnvVar); url != "" {
			parsed, err := postgres.ParseURL(url)
			if err != nil {
				return nil, errors.Wrapf(err, "target %q: invalid %s", db.Label, t.EnvVar)
			}
			merge(&db, parsed)
		}

		applyDefaults(&db)
		if err := db.Validate(); err != nil {
			return nil, err
		}

		out = append(out, db)
	}

	return out, nil
}

func (s *Sources) lookup(name string) string {
	if name == "" {
		return ""
	}

	if v, ok := s.Env[name]; ok {
		return v
	}

	return os.Getenv(name)
}

// locate returns the configured path, or the first default name found in the project
// directory.
func (c *Config) locate(configured string, defaults ...string) (string, bool, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", false, errors.Wrapf(err, "failed to stat %s", configured)
		}

		return configured, true, nil
	}

	for _, name := range defaults {
		path := filepath.Join(c.ProjectDir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true, nil
		}
	}

	return "", false, nil
}

// merge fills the empty fields of db from src.
func merge(db *target.Database, src target.Database) {
	if db.Name == "" {
		db.Name = src.Name
	}

	if db.Password == "" && (db.User == "" || db.User == src.User) {
		db.Password = src.Password
	}

	if db.User == "" {
		db.User = src.User
	}

	if db.Host == "" {
		db.Host = src.Host
	}

	if db.Port == 0 {
		db.Port = src.Port
	}
}

func applyDefaults(db *target.Database) {
	if db.Name == "" {
		db.Name = defaultDatabases[db.Label]
	}

	if db.User == "" {
		db.User = consts.DefaultUser
		if db.Password == "" {
			db.Password = consts.DefaultPassword
		}
	}

	if db.Host == "" {
		db.Host = consts.DefaultHost
	}

	if db.Port == 0 {
		db.Port = defaultPorts[db.Label]
	}

	if db.Port == 0 {
		db.Port = consts.PostgresPort
	}
}
