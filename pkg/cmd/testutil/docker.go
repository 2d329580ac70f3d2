package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/docker/dockertest"
	"github.com/pseudomuto/dbstrap/pkg/runner"
)

type (
	// DockerRunner is a runner.Runner that answers "docker ps" and "docker exec" the
	// way the docker executable would, backed by an in-memory runtime.
	DockerRunner struct {
		Runtime *dockertest.Runtime

		mu       sync.Mutex
		commands []runner.Command
	}

	// Postgres simulates the psql and pg_isready invocations made inside database
	// containers. A database counts as initialized once a script creating tables
	// succeeded against it. Scripts containing "ERROR" fail.
	Postgres struct {
		// NotReady lists container IDs that never accept connections.
		NotReady map[string]bool

		mu          sync.Mutex
		initialized map[string]bool
		applied     map[string][]string
	}
)

// NewDockerRunner creates a DockerRunner over the given containers, with exec calls
// answered by pg.
func NewDockerRunner(pg *Postgres, containers ...*docker.Container) *DockerRunner {
	return &DockerRunner{
		Runtime: &dockertest.Runtime{
			Containers: containers,
			ExecFunc:   pg.Exec,
		},
	}
}

func (d *DockerRunner) Run(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()

	if len(cmd.Args) == 0 {
		return &runner.Result{ExitCode: 1, Stderr: "no command"}, nil
	}

	switch cmd.Args[0] {
	case "ps":
		return d.ps(ctx, cmd.Args[1:])
	case "exec":
		return d.exec(ctx, cmd)
	default:
		return &runner.Result{ExitCode: 1, Stderr: fmt.Sprintf("unknown command %q", cmd.Args[0])}, nil
	}
}

// Commands returns every invocation seen, in order.
func (d *DockerRunner) Commands() []runner.Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	return append([]runner.Command(nil), d.commands...)
}

func (d *DockerRunner) ps(ctx context.Context, args []string) (*runner.Result, error) {
	labels := make(map[string]string)
	var name string

	for i := 0; i < len(args)-1; i++ {
		if args[i] != "--filter" {
			continue
		}

		key, value, _ := strings.Cut(args[i+1], "=")
		switch key {
		case "label":
			k, v, _ := strings.Cut(value, "=")
			labels[k] = v
		case "name":
			name = value
		}
	}

	var (
		list []*docker.Container
		err  error
	)

	if name != "" {
		list, err = d.Runtime.FindByName(ctx, name)
	} else {
		list, err = d.Runtime.FindByLabels(ctx, labels)
	}

	if err != nil {
		return &runner.Result{ExitCode: 1, Stderr: err.Error()}, nil
	}

	var out strings.Builder
	for _, c := range list {
		fmt.Fprintf(&out, "%s\t%s\t%s\t%s\t%s\n", c.ID, strings.Join(c.Names, ","), c.Image, c.State, c.Status)
	}

	return &runner.Result{Stdout: out.String()}, nil
}

func (d *DockerRunner) exec(ctx context.Context, cmd runner.Command) (*runner.Result, error) {
	req := docker.ExecRequest{Stdin: cmd.Stdin}

	args := cmd.Args[1:]
	for len(args) > 0 && strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "-e":
			if len(args) > 1 {
				req.Env = append(req.Env, args[1])
				args = args[1:]
			}
		}
		args = args[1:]
	}

	if len(args) < 2 {
		return &runner.Result{ExitCode: 1, Stderr: "exec requires a container and a command"}, nil
	}

	req.Cmd = args[1:]
	return d.Runtime.Exec(ctx, args[0], req)
}

// NewPostgres creates a Postgres simulation where every database starts empty.
func NewPostgres() *Postgres {
	return &Postgres{
		NotReady:    make(map[string]bool),
		initialized: make(map[string]bool),
		applied:     make(map[string][]string),
	}
}

// Exec answers an exec call made against container id.
func (p *Postgres) Exec(_ context.Context, id string, call dockertest.ExecCall) (*runner.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(call.Cmd) == 0 {
		return &runner.Result{ExitCode: 127}, nil
	}

	switch {
	case call.Cmd[0] == "pg_isready":
		if p.NotReady[id] {
			return &runner.Result{ExitCode: 2, Stdout: "/var/run/postgresql:5432 - no response"}, nil
		}

		return &runner.Result{Stdout: "/var/run/postgresql:5432 - accepting connections"}, nil
	case call.Cmd[0] == "psql" && contains(call.Cmd, "-tA"):
		if p.initialized[id] {
			return &runner.Result{Stdout: "3\n"}, nil
		}

		return &runner.Result{Stdout: "0\n"}, nil
	case call.Cmd[0] == "psql":
		p.applied[id] = append(p.applied[id], firstLine(call.Stdin))
		if strings.Contains(call.Stdin, "ERROR") {
			return &runner.Result{ExitCode: 3, Stderr: "psql:<stdin>:1: ERROR:  syntax error at or near \"ERROR\""}, nil
		}

		if strings.Contains(call.Stdin, "CREATE TABLE") {
			p.initialized[id] = true
		}

		return &runner.Result{}, nil
	default:
		return &runner.Result{ExitCode: 127, Stderr: call.Cmd[0] + ": not found"}, nil
	}
}

// Applied returns the first line of every script run against container id.
func (p *Postgres) Applied(id string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.applied[id]...)
}

// Initialized reports whether container id holds an initialized database.
func (p *Postgres) Initialized(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.initialized[id]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}

	return false
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
