package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/executor"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"github.com/pseudomuto/dbstrap/pkg/scripts"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"golang.org/x/sync/errgroup"
)

type (
	// Resolver locates the container running a service.
	Resolver interface {
		Resolve(ctx context.Context, service string) (*target.Handle, error)
	}

	// Prober waits for a database to accept connections.
	Prober interface {
		WaitUntilReady(ctx context.Context, h *target.Handle, t target.Database) (bool, error)
	}

	// Detector reports whether a database was already bootstrapped.
	Detector interface {
		IsInitialized(ctx context.Context, h *target.Handle, t target.Database) bool
	}

	// Executor runs a single script.
	Executor interface {
		Execute(ctx context.Context, h *target.Handle, t target.Database, s *scripts.Script) *executor.ExecutionResult
	}

	// Discoverer lists the scripts under a root in execution order.
	Discoverer func(root string) ([]*scripts.Script, error)

	// Config wires the collaborators of an Orchestrator.
	Config struct {
		Resolver Resolver
		Prober   Prober
		Detector Detector
		Executor Executor

		// Reporter receives progress events. Optional.
		Reporter Reporter

		// Discover defaults to scripts.Discover.
		Discover Discoverer

		// Parallel processes targets concurrently. Scripts of a single target always
		// run sequentially.
		Parallel bool
	}

	// Orchestrator bootstraps a list of database targets.
	Orchestrator struct {
		resolver Resolver
		prober   Prober
		detector Detector
		executor Executor
		reporter Reporter
		discover Discoverer
		parallel bool
	}
)

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	discover := cfg.Discover
	if discover == nil {
		discover = scripts.Discover
	}

	return &Orchestrator{
		resolver: cfg.Resolver,
		prober:   cfg.Prober,
		detector: cfg.Detector,
		executor: cfg.Executor,
		reporter: reporter,
		discover: discover,
		parallel: cfg.Parallel,
	}
}

// Run bootstraps every target and returns one summary per target in input order.
// When force is set the initialization check is bypassed and all scripts run.
func (o *Orchestrator) Run(ctx context.Context, targets []target.Database, scriptRoot string, force bool) []*TargetSummary {
	summaries := make([]*TargetSummary, len(targets))
	slog.Info("Bootstrapping databases", "targets", len(targets), "script_root", scriptRoot, "force", force, "parallel", o.parallel)

	if !o.parallel {
		for i, t := range targets {
			summaries[i] = o.runTarget(ctx, o.reporter, t, scriptRoot, force)
		}

		return summaries
	}

	reporter := &syncReporter{next: o.reporter}
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			summaries[i] = o.runTarget(ctx, reporter, t, scriptRoot, force)
			return nil
		})
	}

	_ = g.Wait()
	return summaries
}

func (o *Orchestrator) runTarget(ctx context.Context, r Reporter, t target.Database, scriptRoot string, force bool) *TargetSummary {
	run := &targetRun{
		reporter: r,
		summary: &TargetSummary{
			Label:    t.Label,
			Service:  t.Service,
			Database: t.Name,
			State:    StatePending,
		},
	}

	run.transition(StateResolving, "Resolving container for service %q", t.Service)
	h, err := o.resolver.Resolve(ctx, t.Service)
	if err != nil {
		if runner.IsLaunchError(err) {
			return run.skipLaunch(err)
		}

		return run.skip(ReasonContainerNotFound, err)
	}

	run.summary.ContainerID = h.ShortID()
	run.transition(StateProbing, "Waiting for %s in container %s", t.Name, h.ShortID())
	ready, err := o.prober.WaitUntilReady(ctx, h, t)
	if err != nil && runner.IsLaunchError(err) {
		return run.skipLaunch(err)
	}

	if !ready {
		return run.skip(ReasonNotReady, err)
	}

	if !force {
		run.transition(StateCheckingState, "Checking whether %s is already initialized", t.Name)
		if o.detector.IsInitialized(ctx, h, t) {
			return run.skip(ReasonAlreadyInitialized, nil)
		}
	}

	list, err := o.discover(scriptRoot)
	if err != nil {
		if errors.Is(err, scripts.ErrScriptTreeMissing) {
			return run.skip(ReasonNoScripts, nil)
		}

		return run.skip(ReasonNoScripts, err)
	}

	run.transition(StateExecuting, "Executing %d scripts against %s", len(list), t.Name)
	for _, s := range list {
		res := o.executor.Execute(ctx, h, t, s)
		run.record(res)
	}

	run.transition(StateDone, "Completed: %d succeeded, %d failed", run.summary.SuccessCount, run.summary.FailureCount)
	return run.summary
}

type targetRun struct {
	reporter Reporter
	summary  *TargetSummary
}

func (r *targetRun) transition(state State, format string, args ...any) {
	r.summary.State = state
	r.emit(Event{Kind: EventState, State: state, Message: fmt.Sprintf(format, args...)})
}

func (r *targetRun) skip(reason string, cause error) *TargetSummary {
	r.summary.State = StateSkipped
	r.summary.Skipped = true
	r.summary.SkipReason = reason
	if cause != nil {
		r.summary.Detail = cause.Error()
	}

	slog.Info("Skipping target", "target", r.summary.Label, "reason", reason, "detail", r.summary.Detail)
	r.emit(Event{Kind: EventSkipped, State: StateSkipped, Message: "Skipped: " + reason})
	return r.summary
}

func (r *targetRun) skipLaunch(err error) *TargetSummary {
	r.summary.LaunchErr = err
	return r.skip(ReasonRuntimeUnavailable+": "+errors.Cause(err).Error(), err)
}

func (r *targetRun) record(res *executor.ExecutionResult) {
	r.summary.Results = append(r.summary.Results, res)
	if res.Succeeded() {
		r.summary.SuccessCount++
	} else {
		r.summary.FailureCount++
		if res.LaunchErr != nil && r.summary.LaunchErr == nil {
			r.summary.LaunchErr = res.LaunchErr
		}
	}

	msg := fmt.Sprintf("%s succeeded in %s", res.Rel, res.ExecutionTime.Round(time.Millisecond))
	if !res.Succeeded() {
		msg = fmt.Sprintf("%s failed: %s", res.Rel, res.Error)
	}

	r.emit(Event{Kind: EventScript, State: StateExecuting, Script: res.Rel, Result: res, Message: msg})
}

func (r *targetRun) emit(e Event) {
	e.Target = r.summary.Label
	e.Time = time.Now()
	e.Summary = r.summary
	r.reporter.Report(e)
}

type syncReporter struct {
	mu   sync.Mutex
	next Reporter
}

func (r *syncReporter) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next.Report(e)
}

type nopReporter struct{}

func (nopReporter) Report(Event) {}
