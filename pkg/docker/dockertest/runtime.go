// Package dockertest provides an in-memory docker.Runtime for tests.
package dockertest

import (
	"context"
	"io"
	"sync"

	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/runner"
)

type (
	// Runtime is a docker.Runtime over a fixed set of running containers. Exec calls
	// are recorded and answered by ExecFunc, or succeed with empty output when it is nil.
	Runtime struct {
		Containers []*docker.Container
		ExecFunc   func(ctx context.Context, id string, req ExecCall) (*runner.Result, error)

		// FindErr, when set, is returned from every lookup.
		FindErr error

		mu      sync.Mutex
		execs   []ExecCall
		lookups []string
	}

	// ExecCall is a recorded Exec invocation with stdin fully read.
	ExecCall struct {
		ID    string
		Cmd   []string
		Env   []string
		Stdin string
	}
)

func (r *Runtime) FindByLabels(_ context.Context, labels map[string]string) ([]*docker.Container, error) {
	r.record("labels")
	if r.FindErr != nil {
		return nil, r.FindErr
	}

	var res []*docker.Container
	for _, c := range r.Containers {
		if hasLabels(c, labels) {
			res = append(res, c)
		}
	}

	return res, nil
}

func (r *Runtime) FindByName(_ context.Context, name string) ([]*docker.Container, error) {
	r.record("name:" + name)
	if r.FindErr != nil {
		return nil, r.FindErr
	}

	var res []*docker.Container
	for _, c := range r.Containers {
		if c.HasName(name) {
			res = append(res, c)
		}
	}

	return res, nil
}

func (r *Runtime) Exec(ctx context.Context, id string, req docker.ExecRequest) (*runner.Result, error) {
	call := ExecCall{ID: id, Cmd: req.Cmd, Env: req.Env}
	if req.Stdin != nil {
		data, err := io.ReadAll(req.Stdin)
		if err != nil {
			return nil, err
		}

		call.Stdin = string(data)
	}

	r.mu.Lock()
	r.execs = append(r.execs, call)
	r.mu.Unlock()

	if r.ExecFunc == nil {
		return &runner.Result{}, nil
	}

	return r.ExecFunc(ctx, id, call)
}

// Execs returns the recorded Exec calls in order.
func (r *Runtime) Execs() []ExecCall {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]ExecCall(nil), r.execs...)
}

// Lookups returns the recorded lookups: "labels" or "name:<name>".
func (r *Runtime) Lookups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.lookups...)
}

func (r *Runtime) record(lookup string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lookups = append(r.lookups, lookup)
}

// Compose returns a container as compose would label and name it.
func Compose(id, project, service string) *docker.Container {
	return &docker.Container{
		ID:    id,
		Names: []string{project + "-" + service + "-1"},
		Image: "postgres:16",
		State: "running",
		Labels: map[string]string{
			consts.ComposeProjectLabel: project,
			consts.ComposeServiceLabel: service,
		},
	}
}

// Named returns an unlabelled container with the given name.
func Named(id, name string) *docker.Container {
	return &docker.Container{
		ID:    id,
		Names: []string{name},
		Image: "postgres:16",
		State: "running",
	}
}

func hasLabels(c *docker.Container, labels map[string]string) bool {
	for k, v := range labels {
		if c.Labels[k] != v {
			return false
		}
	}

	return true
}
