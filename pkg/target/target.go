// Package target holds the descriptions of the databases dbstrap bootstraps and of
// the containers they were found in.
package target

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Database describes one logical database to bootstrap.
	Database struct {
		// Label identifies the target in logs and reports (e.g. "primary", "sim").
		Label string `json:"label" yaml:"label"`

		// Service is the compose service name of the container running the database.
		Service string `json:"service" yaml:"service"`

		// Name is the database name inside the server.
		Name string `json:"database" yaml:"database"`

		// User is the database role scripts run as.
		User string `json:"user" yaml:"user"`

		// Password is the role's password. Never serialized.
		Password string `json:"-" yaml:"password,omitempty"`

		// Host and Port are used when probing or inspecting from the host instead of
		// from inside the container.
		Host string `json:"host,omitempty" yaml:"host,omitempty"`
		Port int    `json:"port,omitempty" yaml:"port,omitempty"`
	}

	// Handle identifies a running container resolved for a service.
	Handle struct {
		Service  string `json:"service"`
		ID       string `json:"id"`
		Name     string `json:"name,omitempty"`
		Strategy string `json:"strategy"`
	}
)

// Validate checks that the fields needed to reach the database are present.
func (d Database) Validate() error {
	var missing []string
	if d.Label == "" {
		missing = append(missing, "label")
	}

	if d.Service == "" {
		missing = append(missing, "service")
	}

	if d.Name == "" {
		missing = append(missing, "database")
	}

	if d.User == "" {
		missing = append(missing, "user")
	}

	if len(missing) > 0 {
		return errors.Errorf("target %q is missing %s", d.Label, strings.Join(missing, ", "))
	}

	return nil
}

func (d Database) String() string {
	return fmt.Sprintf("%s (%s/%s)", d.Label, d.Service, d.Name)
}

// ShortID returns the first 12 characters of the container ID, matching docker ps output.
func (h *Handle) ShortID() string {
	if len(h.ID) > 12 {
		return h.ID[:12]
	}

	return h.ID
}
