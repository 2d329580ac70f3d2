package config

import (
	"os"

	"github.com/pseudomuto/dbstrap/pkg/consts"
	"go.uber.org/fx"
)

// Loader loads the configuration at path. Commands call it after global flags have
// been applied so that --dir and --config take effect.
type Loader func(path string) (*Config, error)

var Module = fx.Module("config", fx.Provide(
	func() Loader { return Load },
))

// Load reads the configuration file at path. When path is empty the default
// dbstrap.yaml is used, and a missing default file yields Default() so that commands
// work in projects that never ran init.
func Load(path string) (*Config, error) {
	if path == "" {
		path = consts.DefaultConfigFile
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Default(), nil
		}
	}

	return LoadConfigFile(path)
}
