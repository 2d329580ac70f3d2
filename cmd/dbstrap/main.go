package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pseudomuto/dbstrap/pkg/cmd"
	"github.com/pseudomuto/dbstrap/pkg/config"
	"github.com/pseudomuto/dbstrap/pkg/runner"
	"go.uber.org/fx"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fx.New(
		fx.NopLogger,
		fx.Supply(&cmd.Version{
			Version:   version,
			Commit:    commit,
			Timestamp: date,
		}),
		fx.Provide(
			func() context.Context { return ctx },
			func() []string { return os.Args },
			fx.Annotate(runner.New, fx.As(new(runner.Runner))),
		),
		config.Module,
		cmd.Module,
	)

	app.Run()
}
