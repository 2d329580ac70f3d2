package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the dbstrap CLI application with the fx lifecycle. The application
// runs once the fx app starts and shuts it down with the resulting exit code.
//
// Global Flags:
//   - --dir, -d: Project directory (defaults to current directory)
//   - --config, -c: Configuration file (defaults to dbstrap.yaml when present)
//   - --log-level: debug, info, warn or error
//   - --log-format: text or json
//
// Example usage:
//
//	dbstrap bootstrap
//	dbstrap --dir ../cleo-spa-app bootstrap --force
//	dbstrap --log-level debug status
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p.Version.Version, p.Commands)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func newApp(version string, commands []*cli.Command) *cli.Command {
	return &cli.Command{
		Name:  "dbstrap",
		Usage: "Bootstrap the local databases of a compose project",
		Description: `dbstrap finds the containers running your local postgres databases, waits
for them to accept connections and, unless they were already initialized, runs
schema.sql followed by the seed scripts under the script root.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "the project directory",
				Value:       ".",
				DefaultText: "Current directory",
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the dbstrap config file",
				Sources: cli.EnvVars("DBSTRAP_CONFIG"),
				Config: cli.StringConfig{
					TrimSpace: true,
				},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "warn",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text, json)",
				Value: "text",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if err := os.Chdir(cmd.String("dir")); err != nil {
				return ctx, errors.Wrap(err, "failed to change to project directory")
			}

			logger, err := newLogger(cmd.ErrWriter, cmd.String("log-level"), cmd.String("log-format"))
			if err != nil {
				return ctx, err
			}

			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: commands,
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Errorf("invalid log format %q", format)
	}
}
