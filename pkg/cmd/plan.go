package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/scripts"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/urfave/cli/v3"
)

type (
	plannedScript struct {
		Script string        `json:"script"`
		Phase  scripts.Phase `json:"phase"`
		Hash   string        `json:"hash"`
	}

	plan struct {
		ScriptRoot string            `json:"script_root"`
		Targets    []target.Database `json:"targets"`
		Scripts    []plannedScript   `json:"scripts"`
		TotalHash  string            `json:"total_hash"`
	}
)

// planCmd returns the command that prints the scripts bootstrap would run, in
// execution order, along with the targets they would run against. Each script
// carries a chained h1 hash so two plans can be compared at a glance.
//
// Example usage:
//
//	dbstrap plan
//	dbstrap --dir ../cleo-spa-app plan --json
func planCmd(d deps) *cli.Command {
	return &cli.Command{
		Name:  "plan",
		Usage: "List the scripts bootstrap would run, in order",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the plan as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := d.loadConfig(cmd)
			if err != nil {
				return err
			}

			src, err := cfg.LoadSources()
			if err != nil {
				return err
			}

			targets, err := cfg.ResolveTargets(src)
			if err != nil {
				return errors.Wrap(err, "failed to resolve database targets")
			}

			p, err := buildPlan(cfg.ScriptRoot, targets)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Root().Writer)
				enc.SetIndent("", "  ")
				return errors.Wrap(enc.Encode(p), "failed to encode plan")
			}

			return writePlan(cmd.Root().Writer, p)
		},
	}
}

func buildPlan(root string, targets []target.Database) (*plan, error) {
	list, err := scripts.Discover(root)
	if err != nil {
		return nil, err
	}

	sum, err := scripts.Sum(list)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash scripts")
	}

	p := &plan{
		ScriptRoot: root,
		Targets:    targets,
		Scripts:    make([]plannedScript, 0, len(list)),
		TotalHash:  sum.TotalHash,
	}

	for _, s := range list {
		hash, _ := sum.Hash(s.Rel)
		p.Scripts = append(p.Scripts, plannedScript{Script: s.Rel, Phase: s.Phase, Hash: hash})
	}

	return p, nil
}

func writePlan(w io.Writer, p *plan) error {
	labels := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		labels = append(labels, t.String())
	}

	if _, err := fmt.Fprintf(w, "Targets: %s\n", strings.Join(labels, ", ")); err != nil {
		return err
	}

	if len(p.Scripts) == 0 {
		_, err := fmt.Fprintf(w, "No scripts found in %s\n", p.ScriptRoot)
		return err
	}

	if _, err := fmt.Fprintf(w, "Scripts in %s:\n", p.ScriptRoot); err != nil {
		return err
	}

	for i, s := range p.Scripts {
		if _, err := fmt.Fprintf(w, "  %2d. %-32s %-12s %s\n", i+1, s.Script, s.Phase, s.Hash); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\nTotal: %s\n", p.TotalHash)
	return err
}
