package testutil

import (
	"bytes"
	"testing"

	"github.com/urfave/cli/v3"
)

// RunCommand executes a command inside a throwaway app and returns what it wrote.
func RunCommand(t *testing.T, command *cli.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := &cli.Command{
		Name:     "test",
		Writer:   &out,
		Commands: []*cli.Command{command},
	}

	fullArgs := append([]string{"test", command.Name}, args...)
	err := app.Run(t.Context(), fullArgs)

	return out.String(), err
}
