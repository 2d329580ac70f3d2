package cmd

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/bootstrap"
	"github.com/pseudomuto/dbstrap/pkg/report"
	"github.com/urfave/cli/v3"
)

// bootstrapCmd returns the command that initializes every configured database.
//
// For each target the container is resolved, probed until ready and checked for the
// baseline tables. Targets that are already initialized are skipped unless --force
// is given. Script failures never stop the run; they are listed in the summary and
// make the command exit non-zero.
//
// Example usage:
//
//	# Bootstrap all targets in dbstrap.yaml (or the primary/sim defaults)
//	dbstrap bootstrap
//
//	# Re-run every script, even against initialized databases
//	dbstrap bootstrap --force
//
//	# Only the simulation database, with a machine readable summary
//	dbstrap bootstrap --target sim --json
func bootstrapCmd(d deps) *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Run the schema and seed scripts against uninitialized databases",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "run all scripts even if the database is already initialized",
			},
			&cli.BoolFlag{
				Name:    "parallel",
				Aliases: []string{"p"},
				Usage:   "bootstrap targets concurrently",
			},
			&cli.StringSliceFlag{
				Name:    "target",
				Aliases: []string{"t"},
				Usage:   "only bootstrap the targets with these labels",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the summary as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := d.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			targets, err := ws.filter(cmd.StringSlice("target"))
			if err != nil {
				return err
			}

			var reporter bootstrap.Reporter = report.NewLog(slog.Default())
			if !cmd.Bool("json") {
				reporter = report.Multi{report.NewConsole(cmd.Root().Writer), reporter}
			}

			summaries := ws.orchestrator(reporter, cmd.Bool("parallel")).
				Run(ctx, targets, ws.Config.ScriptRoot, cmd.Bool("force"))

			if cmd.Bool("json") {
				err = report.JSON(cmd.Root().Writer, summaries)
			} else {
				err = report.Summary(cmd.Root().Writer, summaries)
			}

			if err != nil {
				return errors.Wrap(err, "failed to write summary")
			}

			if bootstrap.AnyFailed(summaries) {
				return errors.New("bootstrap completed with failures")
			}

			return nil
		},
	}
}
