package docker

import (
	"context"
	"io"
	"strings"

	"github.com/pseudomuto/dbstrap/pkg/runner"
)

type (
	// Runtime is the subset of container runtime behaviour dbstrap depends on.
	Runtime interface {
		// FindByLabels returns running containers carrying every given label.
		FindByLabels(ctx context.Context, labels map[string]string) ([]*Container, error)

		// FindByName returns running containers whose name is exactly name.
		FindByName(ctx context.Context, name string) ([]*Container, error)

		// Exec runs a command inside the container. A non-zero exit is reported via the
		// result, not the error.
		Exec(ctx context.Context, id string, req ExecRequest) (*runner.Result, error)
	}

	// Container is a running container as reported by the runtime.
	Container struct {
		ID     string
		Names  []string
		Image  string
		State  string
		Status string
		Labels map[string]string
	}

	// ExecRequest describes a command to execute in a container.
	ExecRequest struct {
		Cmd   []string
		Env   []string
		Stdin io.Reader
	}
)

// Name returns the container's primary name.
func (c *Container) Name() string {
	if len(c.Names) == 0 {
		return ""
	}

	return c.Names[0]
}

// HasName reports whether the container is known by exactly name.
func (c *Container) HasName(name string) bool {
	for _, n := range c.Names {
		if n == name {
			return true
		}
	}

	return false
}

func trimNames(names []string) []string {
	res := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "/"))
		if name != "" {
			res = append(res, name)
		}
	}

	return res
}

func exactMatches(list []*Container, name string) []*Container {
	res := make([]*Container, 0, len(list))
	for _, c := range list {
		if c.HasName(name) {
			res = append(res, c)
		}
	}

	return res
}
