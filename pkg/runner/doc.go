// Package runner launches external processes with a deadline and captures their output.
//
// Every interaction dbstrap has with the container runtime CLI and with database
// clients inside containers goes through a Runner. A non-zero exit status is a
// normal outcome reported in the Result; only a failure to start the process at
// all is returned as an error, in which case it is a *ProcessLaunchError.
//
// Example usage:
//
//	res, err := runner.New().Run(ctx, runner.Command{
//		Name:    "docker",
//		Args:    []string{"ps", "--format", "{{.ID}}"},
//		Timeout: time.Minute,
//	})
//	if err != nil {
//		return err // docker is not installed or not executable
//	}
//
//	if res.ExitCode != 0 {
//		fmt.Println(res.Combined())
//	}
package runner
