// Package bootstrap drives every configured database from "container maybe running"
// to "scripts applied", one target at a time.
//
// For each target the Orchestrator walks a small state machine:
//
//	Pending → Resolving → Probing → CheckingState → Executing → Done
//	                ↘           ↘            ↘
//	                 Skipped     Skipped      Skipped
//
// A target is skipped when its container can't be found, when the database never
// becomes ready, when it already holds the baseline tables (unless forced), or
// when there is no script tree. Skips and script failures are recorded in the
// target's TargetSummary and never stop the remaining targets, so a run always
// yields one summary per target, in input order.
//
// Progress is published as Events through a Reporter supplied by the caller.
//
// # Usage Example
//
//	orch := bootstrap.New(bootstrap.Config{
//		Resolver: resolver.New(resolver.Config{Runtime: rt, ProjectDir: "."}),
//		Prober:   probe.New(probe.NewExecCheck(rt), probe.Config{}),
//		Detector: detector.New(detector.NewExecCounter(rt), detector.Config{}),
//		Executor: executor.New(executor.Config{Runtime: rt}),
//		Reporter: report.NewConsole(os.Stdout),
//	})
//
//	for _, s := range orch.Run(ctx, targets, "server/db", false) {
//		fmt.Printf("%s: %d ok, %d failed\n", s.Label, s.SuccessCount, s.FailureCount)
//	}
package bootstrap
