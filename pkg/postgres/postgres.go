// Package postgres talks to target databases directly from the host over the
// published port, for the host probe and detection modes.
package postgres

import (
	"context"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/pseudomuto/dbstrap/pkg/consts"
	"github.com/pseudomuto/dbstrap/pkg/target"
)

const countTablesQuery = `
SELECT COUNT(*)
FROM information_schema.tables
WHERE table_schema = $1 AND table_name = ANY($2)`

type (
	// Conn is the subset of *pgx.Conn used by Client.
	Conn interface {
		Ping(context.Context) error
		QueryRow(context.Context, string, ...any) pgx.Row
		Close(context.Context) error
	}

	// Connector opens a connection for a DSN.
	Connector func(ctx context.Context, dsn string) (Conn, error)

	// Client opens a short lived connection per call.
	Client struct {
		connect Connector
	}
)

// New returns a Client that connects with pgx.
func New() *Client {
	return NewWithConnector(func(ctx context.Context, dsn string) (Conn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}

		return conn, nil
	})
}

// NewWithConnector returns a Client using connect to open connections.
func NewWithConnector(connect Connector) *Client {
	return &Client{connect: connect}
}

// Ping succeeds once the target accepts connections and answers a ping.
func (c *Client) Ping(ctx context.Context, t target.Database) error {
	conn, err := c.open(ctx, t)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(ctx) }()

	return errors.Wrapf(conn.Ping(ctx), "failed to ping %s", t.Label)
}

// CountTables returns how many of tables exist in schema.
func (c *Client) CountTables(ctx context.Context, t target.Database, schema string, tables []string) (int, error) {
	conn, err := c.open(ctx, t)
	if err != nil {
		return 0, err
	}
	defer func() { _ = conn.Close(ctx) }()

	var count int
	if err := conn.QueryRow(ctx, countTablesQuery, schema, tables).Scan(&count); err != nil {
		return 0, errors.Wrapf(err, "failed to count tables in %s", t.Label)
	}

	return count, nil
}

func (c *Client) open(ctx context.Context, t target.Database) (Conn, error) {
	conn, err := c.connect(ctx, DSN(t))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s", t.Label)
	}

	return conn, nil
}

// DSN renders a connection URL for the target's published host port.
func DSN(t target.Database) string {
	host := t.Host
	if host == "" {
		host = consts.DefaultHost
	}

	port := t.Port
	if port == 0 {
		port = consts.PostgresPort
	}

	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + t.Name,
		RawQuery: "sslmode=disable",
	}

	if t.Password != "" {
		u.User = url.UserPassword(t.User, t.Password)
	} else {
		u.User = url.User(t.User)
	}

	return u.String()
}

// ParseURL extracts connection settings from a postgres URL or keyword/value DSN,
// such as those stored in the application's .env file.
func ParseURL(dsn string) (target.Database, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return target.Database{}, errors.Wrap(err, "failed to parse connection string")
	}

	return target.Database{
		Name:     cfg.Database,
		User:     cfg.User,
		Password: cfg.Password,
		Host:     cfg.Host,
		Port:     int(cfg.Port),
	}, nil
}
