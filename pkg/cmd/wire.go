package cmd

import (
	"io"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/bootstrap"
	"github.com/pseudomuto/dbstrap/pkg/config"
	"github.com/pseudomuto/dbstrap/pkg/detector"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/executor"
	"github.com/pseudomuto/dbstrap/pkg/postgres"
	"github.com/pseudomuto/dbstrap/pkg/probe"
	"github.com/pseudomuto/dbstrap/pkg/resolver"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/urfave/cli/v3"
)

type (
	// deps are the collaborators shared by the commands.
	deps struct {
		Load   config.Loader
		Runner runner.Runner
	}

	// workspace is everything a command needs to talk to the project's databases.
	workspace struct {
		Config   *config.Config
		Targets  []target.Database
		Runtime  docker.Runtime
		Resolver *resolver.Resolver

		client *postgres.Client
		closer io.Closer
	}
)

func newDeps(load config.Loader, r runner.Runner) deps {
	return deps{Load: load, Runner: r}
}

// loadConfig loads the configuration selected by the global --config flag.
func (d deps) loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := d.Load(cmd.String("config"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	return cfg, nil
}

// open loads the configuration, resolves the database targets and connects to the
// configured container runtime. Callers must Close the workspace.
func (d deps) open(cmd *cli.Command) (*workspace, error) {
	cfg, err := d.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	src, err := cfg.LoadSources()
	if err != nil {
		return nil, err
	}

	targets, err := cfg.ResolveTargets(src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve database targets")
	}

	ws := &workspace{Config: cfg, Targets: targets}

	switch cfg.Runtime {
	case config.RuntimeAPI:
		engine, closer, err := docker.NewEngineFromEnv(cfg.CommandTimeout)
		if err != nil {
			return nil, err
		}

		ws.Runtime = engine
		ws.closer = closer
	default:
		ws.Runtime = docker.NewCLI(d.Runner, docker.CLIOptions{
			Binary:  cfg.DockerBinary,
			Timeout: cfg.CommandTimeout,
		})
	}

	if cfg.HostMode() {
		ws.client = postgres.New()
	}

	ws.Resolver = resolver.New(resolver.Config{
		Runtime:    ws.Runtime,
		Project:    cfg.ProjectName(src),
		ProjectDir: cfg.ProjectDir,
	})

	slog.Debug("Opened workspace",
		"runtime", cfg.Runtime,
		"project", ws.Resolver.Project(),
		"targets", len(targets),
	)

	return ws, nil
}

func (w *workspace) Close() error {
	if w.closer == nil {
		return nil
	}

	return w.closer.Close()
}

// filter narrows the targets to the given labels, keeping configuration order.
func (w *workspace) filter(labels []string) ([]target.Database, error) {
	if len(labels) == 0 {
		return w.Targets, nil
	}

	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[l] = true
	}

	var res []target.Database
	for _, t := range w.Targets {
		if want[t.Label] {
			res = append(res, t)
			delete(want, t.Label)
		}
	}

	for _, l := range labels {
		if want[l] {
			return nil, errors.Errorf("unknown target %q", l)
		}
	}

	return res, nil
}

func (w *workspace) prober(attempts int) *probe.Prober {
	var check probe.Check = probe.NewExecCheck(w.Runtime)
	if w.Config.Probe.Mode == config.ModeHost {
		check = probe.NewHostCheck(w.client)
	}

	return probe.New(check, probe.Config{
		MaxAttempts: attempts,
		Interval:    w.Config.Probe.Interval,
	})
}

func (w *workspace) detector() *detector.Detector {
	var counter detector.Counter = detector.NewExecCounter(w.Runtime)
	if w.Config.Detect.Mode == config.ModeHost {
		counter = detector.NewHostCounter(w.client)
	}

	return detector.New(counter, detector.Config{
		Schema: w.Config.Detect.Schema,
		Tables: w.Config.Detect.Tables,
	})
}

func (w *workspace) orchestrator(reporter bootstrap.Reporter, parallel bool) *bootstrap.Orchestrator {
	return bootstrap.New(bootstrap.Config{
		Resolver: w.Resolver,
		Prober:   w.prober(w.Config.Probe.MaxAttempts),
		Detector: w.detector(),
		Executor: executor.New(executor.Config{Runtime: w.Runtime}),
		Reporter: reporter,
		Parallel: parallel || w.Config.Parallel,
	})
}
