package docker

import (
	"bytes"
	"context"
	"io"
	"maps"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/runner"
)

var runningContainers = filters.Arg("status", "running")

type (
	// DockerClient defines the interface for Docker operations used by the Engine.
	// This interface is satisfied by *client.Client and allows for easy mocking in tests.
	DockerClient interface {
		ContainerList(context.Context, container.ListOptions) ([]container.Summary, error)
		ContainerExecCreate(context.Context, string, container.ExecOptions) (container.ExecCreateResponse, error)
		ContainerExecAttach(context.Context, string, container.ExecAttachOptions) (types.HijackedResponse, error)
		ContainerExecInspect(context.Context, string) (container.ExecInspect, error)
	}

	// Engine is a Runtime backed by the Docker daemon API.
	Engine struct {
		client  DockerClient
		timeout time.Duration
	}
)

// NewEngine creates a new Docker Engine instance. The Docker client should be
// initialized before passing it to this constructor.
//
// Example:
//
//	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer cli.Close()
//
//	engine := docker.NewEngine(cli, 5*time.Minute)
func NewEngine(cl DockerClient, timeout time.Duration) *Engine {
	return &Engine{
		client:  cl,
		timeout: timeout,
	}
}

// NewEngineFromEnv connects to the daemon configured by DOCKER_HOST and friends. The
// returned closer releases the client's connections.
func NewEngineFromEnv(timeout time.Duration) (*Engine, io.Closer, error) {
	cl, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, nil, &runner.ProcessLaunchError{Name: "docker api", Err: err}
	}

	return NewEngine(cl, timeout), cl, nil
}

func (e *Engine) FindByLabels(ctx context.Context, labels map[string]string) ([]*Container, error) {
	args := filters.NewArgs(runningContainers)
	for key, value := range labels {
		args.Add("label", key+"="+value)
	}

	return e.list(ctx, args)
}

func (e *Engine) FindByName(ctx context.Context, name string) ([]*Container, error) {
	list, err := e.list(ctx, filters.NewArgs(runningContainers, filters.Arg("name", name)))
	if err != nil {
		return nil, err
	}

	return exactMatches(list, name), nil
}

// Exec creates an exec instance in the container, streams the request's stdin to it
// and demultiplexes its output.
func (e *Engine) Exec(ctx context.Context, id string, req ExecRequest) (*runner.Result, error) {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	created, err := e.client.ContainerExecCreate(runCtx, id, container.ExecOptions{
		Cmd:          req.Cmd,
		Env:          req.Env,
		AttachStdin:  req.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, e.wrap(ctx, runCtx, errors.Wrapf(err, "failed to create exec in container: %s", id))
	}

	hijack, err := e.client.ContainerExecAttach(runCtx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, e.wrap(ctx, runCtx, errors.Wrapf(err, "failed to attach to exec in container: %s", id))
	}
	defer hijack.Close()

	fed := make(chan error, 1)
	if req.Stdin != nil {
		go func() {
			_, err := io.Copy(hijack.Conn, req.Stdin)
			if err == nil {
				err = hijack.CloseWrite()
			}
			fed <- err
		}()
	} else {
		fed <- nil
	}

	var stdout, stderr bytes.Buffer
	copied := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(&stdout, &stderr, hijack.Reader)
		copied <- err
	}()

	var feedErr error
	select {
	case err = <-copied:
		select {
		case feedErr = <-fed:
		case <-runCtx.Done():
			hijack.Close()
			<-fed
		}
	case <-runCtx.Done():
		hijack.Close()
		<-copied
		<-fed
	}

	if runCtx.Err() != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return &runner.Result{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			TimedOut: true,
			Duration: time.Since(start),
		}, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to read exec output from container: %s", id)
	}

	inspect, err := e.client.ContainerExecInspect(runCtx, created.ID)
	if err != nil {
		return nil, e.wrap(ctx, runCtx, errors.Wrapf(err, "failed to inspect exec in container: %s", id))
	}

	// A process that exits early may close its stdin; only a clean exit needs every byte.
	if feedErr != nil && inspect.ExitCode == 0 {
		return nil, errors.Wrapf(feedErr, "failed to write exec input to container: %s", id)
	}

	return &runner.Result{
		ExitCode: inspect.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}, nil
}

func (e *Engine) list(ctx context.Context, args filters.Args) ([]*Container, error) {
	list, err := e.client.ContainerList(ctx, container.ListOptions{Filters: args})
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return nil, &runner.ProcessLaunchError{Name: "docker api", Err: err}
		}

		return nil, errors.Wrap(err, "failed to list running containers")
	}

	res := make([]*Container, len(list))
	for i, c := range list {
		res[i] = &Container{
			ID:     c.ID,
			Names:  trimNames(c.Names),
			Image:  c.Image,
			State:  c.State,
			Status: c.Status,
			Labels: maps.Clone(c.Labels),
		}
	}

	return res, nil
}

// wrap prefers the caller's cancellation over the error produced by the aborted call.
func (e *Engine) wrap(parent, runCtx context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}

	if runCtx.Err() != nil {
		return errors.Wrap(runCtx.Err(), err.Error())
	}

	if client.IsErrConnectionFailed(err) {
		return &runner.ProcessLaunchError{Name: "docker api", Err: err}
	}

	return err
}
