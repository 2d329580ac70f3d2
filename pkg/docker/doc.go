// Package docker locates running containers and executes commands inside them.
//
// Two implementations of Runtime are provided:
//
//   - CLI shells out to the docker executable through a runner.Runner. This is the
//     default since it only requires the binary users already have on PATH.
//   - Engine talks to the daemon API with the Docker SDK. It is selected with
//     `runtime: api` and honours the usual DOCKER_HOST environment.
//
// Both only ever consider running containers, and both report the outcome of an
// executed command as a *runner.Result so callers don't care which is in use.
//
// # Usage Example
//
//	rt := docker.NewCLI(runner.New(), docker.CLIOptions{Timeout: time.Minute})
//
//	containers, err := rt.FindByLabels(ctx, map[string]string{
//		"com.docker.compose.service": "db",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := rt.Exec(ctx, containers[0].ID, docker.ExecRequest{
//		Cmd: []string{"pg_isready", "-U", "user", "-d", "my_db"},
//	})
package docker
