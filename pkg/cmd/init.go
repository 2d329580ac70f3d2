package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/config"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/urfave/cli/v3"
)

// initCmd returns the command that writes a dbstrap.yaml with every default spelled
// out, ready to be edited. An existing file is only replaced with --force.
//
// Example usage:
//
//	dbstrap init
//	dbstrap --dir ../cleo-spa-app init --force
func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a dbstrap.yaml with the default configuration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "overwrite an existing configuration file",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := consts.DefaultConfigFile
			if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
				return errors.Errorf("%s already exists, use --force to overwrite it", path)
			}

			f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, consts.ModeFile)
			if err != nil {
				return errors.Wrapf(err, "failed to create %s", path)
			}
			defer func() { _ = f.Close() }()

			if err := config.Default().Write(f); err != nil {
				return err
			}

			fmt.Fprintf(cmd.Root().Writer, "Wrote %s\n", path)
			return nil
		},
	}
}
