// Package cmd provides the CLI commands for the dbstrap tool.
//
// Commands are provided into the fx "commands" group and run by a single
// urfave/cli application registered with the fx lifecycle (see Run).
//
// # Available Commands
//
//   - bootstrap: Resolve, probe and initialize every configured database
//   - status: Show whether each database is running, ready and initialized
//   - plan: List the scripts bootstrap would run, with their hashes
//   - init: Write a dbstrap.yaml with the default configuration
//
// # Global Options
//
//   - --dir, -d: Project directory (defaults to current directory)
//   - --config, -c: Configuration file (also DBSTRAP_CONFIG)
//   - --log-level: Minimum level of structured logs written to stderr
//   - --log-format: text or json
//
// # Example Usage
//
//	dbstrap init
//	dbstrap plan
//	dbstrap bootstrap --parallel
//	dbstrap bootstrap --force --target sim
//	dbstrap status --json
//
// Configuration is loaded lazily by each command, after --dir has been applied, so
// commands work from any directory and in projects that never ran init.
package cmd
