package docker

import (
	"context"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/runner"
)

// psFormat renders one container per line as tab separated fields.
const psFormat = "{{.ID}}\t{{.Names}}\t{{.Image}}\t{{.State}}\t{{.Status}}"

type (
	// CLI is a Runtime that drives the docker executable.
	CLI struct {
		runner  runner.Runner
		binary  string
		timeout time.Duration
	}

	// CLIOptions configures a CLI runtime.
	CLIOptions struct {
		// Binary is the executable to invoke. Defaults to "docker".
		Binary string

		// Timeout bounds each invocation. Zero means no limit.
		Timeout time.Duration
	}
)

// NewCLI creates a Runtime that shells out to the docker executable through r.
//
// Example:
//
//	rt := docker.NewCLI(runner.New(), docker.CLIOptions{
//		Binary:  "podman",
//		Timeout: 5 * time.Minute,
//	})
func NewCLI(r runner.Runner, opts CLIOptions) *CLI {
	binary := opts.Binary
	if binary == "" {
		binary = consts.DefaultDockerBinary
	}

	return &CLI{
		runner:  r,
		binary:  binary,
		timeout: opts.Timeout,
	}
}

func (c *CLI) FindByLabels(ctx context.Context, labels map[string]string) ([]*Container, error) {
	args := []string{"ps", "--no-trunc", "--filter", "status=running"}
	for _, key := range slices.Sorted(maps.Keys(labels)) {
		args = append(args, "--filter", "label="+key+"="+labels[key])
	}

	list, err := c.ps(ctx, args)
	if err != nil {
		return nil, err
	}

	for _, ct := range list {
		ct.Labels = maps.Clone(labels)
	}

	return list, nil
}

func (c *CLI) FindByName(ctx context.Context, name string) ([]*Container, error) {
	// The name filter matches substrings, so results are narrowed to exact matches.
	list, err := c.ps(ctx, []string{"ps", "--no-trunc", "--filter", "status=running", "--filter", "name=" + name})
	if err != nil {
		return nil, err
	}

	return exactMatches(list, name), nil
}

func (c *CLI) Exec(ctx context.Context, id string, req ExecRequest) (*runner.Result, error) {
	args := []string{"exec"}
	if req.Stdin != nil {
		args = append(args, "-i")
	}

	for _, env := range req.Env {
		args = append(args, "-e", env)
	}

	args = append(args, id)
	args = append(args, req.Cmd...)

	return c.runner.Run(ctx, runner.Command{
		Name:    c.binary,
		Args:    args,
		Stdin:   req.Stdin,
		Timeout: c.timeout,
	})
}

func (c *CLI) ps(ctx context.Context, args []string) ([]*Container, error) {
	args = append(args, "--format", psFormat)
	res, err := c.runner.Run(ctx, runner.Command{
		Name:    c.binary,
		Args:    args,
		Timeout: c.timeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list running containers")
	}

	if !res.Success() {
		if res.TimedOut {
			return nil, errors.Errorf("%s ps timed out after %s", c.binary, c.timeout)
		}

		return nil, errors.Errorf("%s ps exited with code %d: %s", c.binary, res.ExitCode, res.Combined())
	}

	return parsePS(res.Stdout), nil
}

func parsePS(out string) []*Container {
	var res []*Container
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		for len(fields) < 5 {
			fields = append(fields, "")
		}

		res = append(res, &Container{
			ID:     fields[0],
			Names:  trimNames(strings.Split(fields[1], ",")),
			Image:  fields[2],
			State:  fields[3],
			Status: fields[4],
		})
	}

	return res
}
