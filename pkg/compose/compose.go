// Package compose reads the parts of a compose file dbstrap cares about: the
// project name and, per service, the postgres credentials and published port.
package compose

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"gopkg.in/yaml.v3"
)

type (
	// File is a parsed compose file.
	File struct {
		Name     string             `yaml:"name"`
		Services map[string]Service `yaml:"services"`
	}

	// Service is a compose service definition.
	Service struct {
		Image         string      `yaml:"image"`
		ContainerName string      `yaml:"container_name"`
		Environment   Environment `yaml:"environment"`
		Ports         []Port      `yaml:"ports"`
	}

	// Environment holds a service's environment, given either as a mapping or as a
	// list of KEY=VALUE strings.
	Environment map[string]string

	// Port is a port mapping, given either in short ("5433:5432") or long syntax.
	Port struct {
		Published int
		Target    int
	}
)

// Load parses a compose file from r.
func Load(r io.Reader) (*File, error) {
	var f File
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal compose file")
	}

	return &f, nil
}

// LoadFile parses the compose file at path.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open compose file: %s", path)
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Database returns what the compose file says about the postgres database run by
// service. ok is false when the service isn't defined.
func (f *File) Database(service string) (db target.Database, ok bool) {
	svc, ok := f.Services[service]
	if !ok {
		return target.Database{}, false
	}

	db = target.Database{
		Service:  service,
		Name:     svc.Environment["POSTGRES_DB"],
		User:     svc.Environment["POSTGRES_USER"],
		Password: svc.Environment["POSTGRES_PASSWORD"],
	}

	// The image uses the user name as the database name when POSTGRES_DB is unset.
	if db.Name == "" {
		db.Name = db.User
	}

	for _, p := range svc.Ports {
		if p.Target == consts.PostgresPort && p.Published > 0 {
			db.Port = p.Published
			break
		}
	}

	return db, true
}

func (e *Environment) UnmarshalYAML(node *yaml.Node) error {
	env := make(Environment)

	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			env[node.Content[i].Value] = node.Content[i+1].Value
		}
	case yaml.SequenceNode:
		for _, item := range node.Content {
			key, value, _ := strings.Cut(item.Value, "=")
			env[key] = value
		}
	default:
		return errors.Errorf("line %d: environment must be a mapping or a list", node.Line)
	}

	*e = env
	return nil
}

func (p *Port) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return p.parseShort(node.Value)
	case yaml.MappingNode:
		var long struct {
			Target    int    `yaml:"target"`
			Published string `yaml:"published"`
		}

		if err := node.Decode(&long); err != nil {
			return err
		}

		p.Target = long.Target
		if long.Published != "" {
			published, err := strconv.Atoi(long.Published)
			if err != nil {
				return errors.Wrapf(err, "line %d: invalid published port", node.Line)
			}

			p.Published = published
		}

		return nil
	default:
		return errors.Errorf("line %d: unsupported port definition", node.Line)
	}
}

// parseShort handles [[ip:]published:]target[/protocol]. Ranges are ignored.
func (p *Port) parseShort(value string) error {
	value, _, _ = strings.Cut(value, "/")
	parts := strings.Split(value, ":")

	target, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return nil
	}
	p.Target = target

	if len(parts) > 1 {
		if published, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
			p.Published = published
		}
	}

	return nil
}
