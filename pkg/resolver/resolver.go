package resolver

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/docker"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

// ErrContainerNotFound is returned when no strategy locates a running container.
var ErrContainerNotFound = errors.New("container not found")

const (
	ComposeLabelLookup StrategyKind = iota
	NamingConvention
	BareName
)

type (
	// StrategyKind enumerates the ways a container can be located.
	StrategyKind int

	// Strategy is one way of locating a service's container. Separator is only used
	// by NamingConvention.
	Strategy struct {
		Kind      StrategyKind
		Separator string
	}

	// Config configures a Resolver.
	Config struct {
		// Runtime is used to query running containers.
		Runtime docker.Runtime

		// Project is the compose project name. Derived from ProjectDir when empty.
		Project string

		// ProjectDir is the directory the compose project lives in.
		ProjectDir string

		// Strategies overrides DefaultStrategies.
		Strategies []Strategy
	}

	// Resolver maps service names to running containers.
	Resolver struct {
		runtime    docker.Runtime
		project    string
		strategies []Strategy
	}
)

// DefaultStrategies returns the lookup order used when none is configured.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Kind: ComposeLabelLookup},
		{Kind: NamingConvention, Separator: "-"},
		{Kind: NamingConvention, Separator: "_"},
		{Kind: BareName},
	}
}

// New creates a Resolver.
//
// Example usage:
//
//	res := resolver.New(resolver.Config{
//		Runtime:    docker.NewCLI(runner.New(), docker.CLIOptions{}),
//		ProjectDir: "/src/cleo-spa-app",
//	})
//
//	handle, err := res.Resolve(ctx, "db")
//	if errors.Is(err, resolver.ErrContainerNotFound) {
//		// compose stack isn't running
//	}
func New(cfg Config) *Resolver {
	project := cfg.Project
	if project == "" && cfg.ProjectDir != "" {
		project = ProjectName(cfg.ProjectDir)
	}

	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}

	return &Resolver{
		runtime:    cfg.Runtime,
		project:    NormalizeProjectName(project),
		strategies: strategies,
	}
}

// Project returns the compose project name used for lookups.
func (r *Resolver) Project() string {
	return r.project
}

// Resolve locates the running container for service.
func (r *Resolver) Resolve(ctx context.Context, service string) (*target.Handle, error) {
	for _, s := range r.strategies {
		handle, err := r.try(ctx, s, service)
		if err != nil {
			if runner.IsLaunchError(err) || ctx.Err() != nil {
				return nil, err
			}

			slog.Debug("Container lookup failed", "service", service, "strategy", s.String(), "err", err)
			continue
		}

		if handle != nil {
			slog.Debug("Resolved container", "service", service, "id", handle.ShortID(), "strategy", handle.Strategy)
			return handle, nil
		}
	}

	return nil, errors.Wrapf(ErrContainerNotFound, "no running container for service %q", service)
}

func (r *Resolver) try(ctx context.Context, s Strategy, service string) (*target.Handle, error) {
	if s.Kind == ComposeLabelLookup {
		return r.byLabels(ctx, s, service)
	}

	for _, name := range s.Candidates(r.project, service) {
		list, err := r.runtime.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}

		if len(list) > 0 {
			return &target.Handle{
				Service:  service,
				ID:       list[0].ID,
				Name:     name,
				Strategy: s.String(),
			}, nil
		}
	}

	return nil, nil
}

func (r *Resolver) byLabels(ctx context.Context, s Strategy, service string) (*target.Handle, error) {
	labels := map[string]string{consts.ComposeServiceLabel: service}
	if r.project != "" {
		labels[consts.ComposeProjectLabel] = r.project
	}

	list, err := r.runtime.FindByLabels(ctx, labels)
	if err != nil {
		return nil, err
	}

	switch len(list) {
	case 0:
		return nil, nil
	case 1:
		return &target.Handle{
			Service:  service,
			ID:       list[0].ID,
			Name:     list[0].Name(),
			Strategy: s.String(),
		}, nil
	default:
		// Several projects run the same service; leave it to the name based strategies.
		slog.Warn("Multiple containers match compose labels", "service", service, "count", len(list))
		return nil, nil
	}
}

// Candidates returns the container names the strategy tries, in order.
func (s Strategy) Candidates(project, service string) []string {
	switch s.Kind {
	case NamingConvention:
		if project == "" {
			return nil
		}

		base := project + s.Separator + service
		return []string{base + s.Separator + "1", base}
	case BareName:
		return []string{service}
	default:
		return nil
	}
}

func (s Strategy) String() string {
	switch s.Kind {
	case ComposeLabelLookup:
		return "compose-labels"
	case NamingConvention:
		return "naming(" + s.Separator + ")"
	case BareName:
		return "bare-name"
	default:
		return "unknown"
	}
}

// ProjectName derives the compose project name from the project directory the same
// way compose does when no name is configured.
func ProjectName(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	return NormalizeProjectName(filepath.Base(dir))
}

// NormalizeProjectName lower-cases name and drops characters compose does not allow
// in project names.
func NormalizeProjectName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	return strings.TrimLeft(b.String(), "_-")
}
