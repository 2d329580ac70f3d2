package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// DefaultConfigFile is the project configuration file looked up in the project directory
	DefaultConfigFile = "dbstrap.yaml"

	// DefaultComposeFile is the compose file consulted for database credentials and ports
	DefaultComposeFile = "compose.yml"

	// DefaultEnvFile is the dotenv file carrying connection URLs for the application server
	DefaultEnvFile = "server/.env"

	// DefaultScriptRoot is the directory holding the SQL script tree
	DefaultScriptRoot = "server/db"

	// DefaultDockerBinary is the container runtime executable used by the CLI runtime
	DefaultDockerBinary = "docker"

	// DefaultMaxAttempts is the number of readiness probes made before giving up on a container
	DefaultMaxAttempts = 30

	// DefaultProbeInterval is the delay between readiness probes
	DefaultProbeInterval = 2 * time.Second

	// DefaultCommandTimeout bounds every external command (lookups, probes, script runs)
	DefaultCommandTimeout = 5 * time.Minute

	// DefaultSchema is the schema inspected when detecting an initialized database
	DefaultSchema = "public"

	// SchemaFile is the script always executed first when present at the tree root
	SchemaFile = "schema.sql"

	// ScriptExt is the only extension considered during script discovery
	ScriptExt = ".sql"

	// ComposeServiceLabel is the label compose attaches with the service name
	ComposeServiceLabel = "com.docker.compose.service"

	// ComposeProjectLabel is the label compose attaches with the project name
	ComposeProjectLabel = "com.docker.compose.project"

	// DefaultUser is the database role used when nothing else configures one
	DefaultUser = "user"

	// DefaultPassword is the database password used when nothing else configures one
	DefaultPassword = "password"

	// DefaultHost is the host used for host-mode probes and detection
	DefaultHost = "localhost"

	// PostgresPort is the port postgres listens on inside its container
	PostgresPort = 5432
)

// DefaultBaselineTables are the tables whose presence marks a database as already initialized.
var DefaultBaselineTables = []string{"employees", "members", "services"}
