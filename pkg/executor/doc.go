// Package executor runs SQL scripts against a database inside a container.
//
// Each script is streamed to psql over stdin with ON_ERROR_STOP enabled, so that
// a failing statement fails the whole script, and success is decided solely by
// psql's exit code. Scripts are never retried and a failed script never prevents
// the caller from running the next one.
//
// # Usage Example
//
//	exec := executor.New(executor.Config{
//		Runtime: docker.NewCLI(runner.New(), docker.CLIOptions{}),
//	})
//
//	for _, script := range list {
//		result := exec.Execute(ctx, handle, db, script)
//		switch result.Status {
//		case executor.StatusSuccess:
//			fmt.Printf("✓ %s completed in %v\n", result.Rel, result.ExecutionTime)
//		case executor.StatusFailed:
//			fmt.Printf("✗ %s failed: %s\n", result.Rel, result.Error)
//		}
//	}
package executor
