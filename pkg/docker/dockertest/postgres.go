package dockertest

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/target"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// DefaultPostgresImage is the image started by StartPostgres.
const DefaultPostgresImage = "postgres:16-alpine"

// Postgres is a throwaway postgres container for integration tests.
type Postgres struct {
	container *postgres.PostgresContainer
	name      string
	db        target.Database
}

// SkipIfNoDocker skips the test if Docker is not available.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("Docker not available")
	}

	cmd := exec.CommandContext(t.Context(), "docker", "ps")
	if err := cmd.Run(); err != nil {
		t.Skip("Docker daemon not running")
	}
}

// StartPostgres starts a postgres container for db, skipping the test in -short
// mode or when Docker is unavailable. The container is removed when the test ends.
func StartPostgres(t *testing.T, db target.Database) *Postgres {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pg, err := startPostgres(ctx, db)
	require.NoError(t, err, "Failed to start postgres container")

	t.Cleanup(func() {
		_ = pg.Stop(context.Background())
	})

	return pg
}

func startPostgres(ctx context.Context, db target.Database) (*Postgres, error) {
	ctr, err := postgres.Run(ctx,
		DefaultPostgresImage,
		postgres.WithDatabase(db.Name),
		postgres.WithUsername(db.User),
		postgres.WithPassword(db.Password),
		testcontainers.WithWaitStrategyAndDeadline(
			2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start postgres container")
	}

	pg := &Postgres{container: ctr, db: db}

	name, err := ctr.Name(ctx)
	if err != nil {
		_ = pg.Stop(ctx)
		return nil, errors.Wrap(err, "failed to get container name")
	}
	pg.name = strings.TrimPrefix(name, "/")

	host, err := ctr.Host(ctx)
	if err != nil {
		_ = pg.Stop(ctx)
		return nil, errors.Wrap(err, "failed to get container host")
	}

	port, err := ctr.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = pg.Stop(ctx)
		return nil, errors.Wrap(err, "failed to get container port")
	}

	pg.db.Host = host
	pg.db.Port = port.Int()
	return pg, nil
}

// Stop terminates the container.
func (p *Postgres) Stop(ctx context.Context) error {
	if p.container == nil {
		return nil
	}

	err := p.container.Terminate(ctx)
	p.container = nil

	return errors.Wrap(err, "failed to stop postgres container")
}

// Name returns the container name, usable as a service name with the bare-name strategy.
func (p *Postgres) Name() string {
	return p.name
}

// Handle returns a handle for the running container.
func (p *Postgres) Handle() *target.Handle {
	return &target.Handle{
		Service:  p.name,
		ID:       p.container.GetContainerID(),
		Name:     p.name,
		Strategy: "test",
	}
}

// Database returns the target with its published host and port filled in.
func (p *Postgres) Database() target.Database {
	return p.db
}
