package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/resolver"
	"github.com/urfave/cli/v3"
)

type targetStatus struct {
	Label       string `json:"label"`
	Service     string `json:"service"`
	Database    string `json:"database"`
	Container   string `json:"container,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Running     bool   `json:"running"`
	Ready       bool   `json:"ready"`
	Initialized bool   `json:"initialized"`
}

// statusCmd returns the command that reports, per target, whether its container is
// running, accepting connections and already initialized. It never runs scripts and
// probes each database only once.
//
// Example usage:
//
//	dbstrap status
//	dbstrap status --json
func statusCmd(d deps) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show whether each database is running and initialized",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the status as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := d.open(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			statuses, err := collectStatus(ctx, ws)
			if err != nil {
				return err
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Root().Writer)
				enc.SetIndent("", "  ")
				return errors.Wrap(enc.Encode(statuses), "failed to encode status")
			}

			return writeStatus(cmd.Root().Writer, statuses)
		},
	}
}

func collectStatus(ctx context.Context, ws *workspace) ([]*targetStatus, error) {
	prober := ws.prober(1)
	det := ws.detector()

	res := make([]*targetStatus, 0, len(ws.Targets))
	for _, t := range ws.Targets {
		st := &targetStatus{Label: t.Label, Service: t.Service, Database: t.Name}
		res = append(res, st)

		h, err := ws.Resolver.Resolve(ctx, t.Service)
		if err != nil {
			if errors.Is(err, resolver.ErrContainerNotFound) {
				continue
			}

			return nil, err
		}

		st.Running = true
		st.Container = h.Name
		st.Strategy = h.Strategy

		ready, err := prober.WaitUntilReady(ctx, h, t)
		if err != nil {
			return nil, err
		}

		st.Ready = ready
		if ready {
			st.Initialized = det.IsInitialized(ctx, h, t)
		}
	}

	return res, nil
}

func writeStatus(w io.Writer, statuses []*targetStatus) error {
	yes := color.New(color.FgGreen).SprintFunc()
	no := color.New(color.FgRed).SprintFunc()

	flag := func(ok bool) string {
		if ok {
			return yes("yes")
		}

		return no("no")
	}

	for _, st := range statuses {
		container := st.Container
		if container == "" {
			container = "-"
		}

		if _, err := fmt.Fprintf(w, "%s (%s/%s)\n  container:   %s\n  running:     %s\n  ready:       %s\n  initialized: %s\n",
			st.Label, st.Service, st.Database,
			container,
			flag(st.Running), flag(st.Ready), flag(st.Initialized),
		); err != nil {
			return err
		}
	}

	return nil
}
