package config

import (
	"io"
	"os"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"gopkg.in/yaml.v3"
)

const (
	// RuntimeCLI drives containers through the docker executable.
	RuntimeCLI = "cli"

	// RuntimeAPI talks to the Docker Engine API directly.
	RuntimeAPI = "api"

	// ModeExec probes and inspects databases by exec'ing into their containers.
	ModeExec = "exec"

	// ModeHost connects to databases from the host using their published ports.
	ModeHost = "host"
)

type (
	// Probe configures readiness checks.
	Probe struct {
		Mode        string        `yaml:"mode"`
		MaxAttempts int           `yaml:"max_attempts"`
		Interval    time.Duration `yaml:"interval"`
	}

	// Detect configures how an already initialized database is recognized.
	Detect struct {
		Mode   string   `yaml:"mode"`
		Schema string   `yaml:"schema"`
		Tables []string `yaml:"tables"`
	}

	// Target is a database target as written in dbstrap.yaml. Fields left empty are
	// filled from the compose file, the env file and finally the defaults.
	Target struct {
		target.Database `yaml:",inline"`

		// EnvVar names the variable in the env file holding a connection URL for the
		// target, e.g. PROD_DB_URL.
		EnvVar string `yaml:"env_var,omitempty"`
	}

	// Config represents the dbstrap project configuration.
	Config struct {
		// Project is the compose project name. Derived from the compose file or
		// ProjectDir when empty.
		Project string `yaml:"project,omitempty"`

		// ProjectDir is the directory the compose project lives in.
		ProjectDir string `yaml:"project_dir"`

		// ComposeFile is consulted for credentials and published ports. Optional.
		ComposeFile string `yaml:"compose_file"`

		// EnvFile is the server's dotenv file carrying connection URLs. Optional.
		EnvFile string `yaml:"env_file"`

		// ScriptRoot is the directory holding schema.sql and the seed scripts.
		ScriptRoot string `yaml:"script_root"`

		// Runtime selects how containers are found and exec'd into: cli or api.
		Runtime string `yaml:"runtime"`

		// DockerBinary is the executable used by the cli runtime.
		DockerBinary string `yaml:"docker_binary"`

		// CommandTimeout bounds every external command. Zero disables the limit.
		CommandTimeout time.Duration `yaml:"command_timeout"`

		Probe  Probe  `yaml:"probe"`
		Detect Detect `yaml:"detect"`

		// Parallel bootstraps targets concurrently.
		Parallel bool `yaml:"parallel"`

		Targets []Target `yaml:"targets"`
	}
)

// Default returns the configuration used when no dbstrap.yaml exists.
func Default() *Config {
	cfg := &Config{CommandTimeout: consts.DefaultCommandTimeout}
	cfg.setDefaults()
	return cfg
}

// LoadConfig parses a dbstrap configuration from the provided io.Reader, applies
// defaults for every unset value and validates the result.
//
// Example:
//
//	cfg, err := config.LoadConfig(strings.NewReader(`
//	script_root: db
//	probe:
//	  max_attempts: 10
//	`))
//	if err != nil {
//		return err
//	}
//
//	fmt.Println(cfg.Runtime) // cli
func LoadConfig(r io.Reader) (*Config, error) {
	// Zero is a valid timeout, so its default has to be in place before decoding.
	cfg := Config{CommandTimeout: consts.DefaultCommandTimeout}
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal dbstrap config")
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadConfigFile loads a project configuration from the specified file path.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadConfig(f)
}

// Write serializes the configuration as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to marshal dbstrap config")
	}

	return enc.Close()
}

// Validate checks enumerated values and target labels.
func (c *Config) Validate() error {
	if c.Runtime != RuntimeCLI && c.Runtime != RuntimeAPI {
		return errors.Errorf("invalid runtime %q: must be %s or %s", c.Runtime, RuntimeCLI, RuntimeAPI)
	}

	if !validMode(c.Probe.Mode) {
		return errors.Errorf("invalid probe mode %q: must be %s or %s", c.Probe.Mode, ModeExec, ModeHost)
	}

	if !validMode(c.Detect.Mode) {
		return errors.Errorf("invalid detect mode %q: must be %s or %s", c.Detect.Mode, ModeExec, ModeHost)
	}

	if c.CommandTimeout < 0 {
		return errors.New("command_timeout must not be negative")
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Label == "" {
			return errors.Errorf("target %d is missing a label", i)
		}

		if seen[t.Label] {
			return errors.Errorf("duplicate target label %q", t.Label)
		}
		seen[t.Label] = true
	}

	return nil
}

// HostMode reports whether anything connects to the databases from the host.
func (c *Config) HostMode() bool {
	return c.Probe.Mode == ModeHost || c.Detect.Mode == ModeHost
}

func (c *Config) setDefaults() {
	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}

	if c.ScriptRoot == "" {
		c.ScriptRoot = consts.DefaultScriptRoot
	}

	if c.Runtime == "" {
		c.Runtime = RuntimeCLI
	}

	if c.DockerBinary == "" {
		c.DockerBinary = consts.DefaultDockerBinary
	}

	if c.Probe.Mode == "" {
		c.Probe.Mode = ModeExec
	}

	if c.Probe.MaxAttempts == 0 {
		c.Probe.MaxAttempts = consts.DefaultMaxAttempts
	}

	if c.Probe.Interval == 0 {
		c.Probe.Interval = consts.DefaultProbeInterval
	}

	if c.Detect.Mode == "" {
		c.Detect.Mode = ModeExec
	}

	if c.Detect.Schema == "" {
		c.Detect.Schema = consts.DefaultSchema
	}

	if c.Detect.Tables == nil {
		c.Detect.Tables = slices.Clone(consts.DefaultBaselineTables)
	}

	if len(c.Targets) == 0 {
		c.Targets = DefaultTargets()
	}
}

// DefaultTargets are the primary and simulation databases of the standard compose
// layout.
func DefaultTargets() []Target {
	return []Target{
		{Database: target.Database{Label: "primary", Service: "db"}, EnvVar: "PROD_DB_URL"},
		{Database: target.Database{Label: "sim", Service: "db-sim"}, EnvVar: "SIM_DB_URL"},
	}
}

func validMode(m string) bool {
	return m == ModeExec || m == ModeHost
}
