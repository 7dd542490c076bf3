// Custodian - GRC Backup and Restore Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/custodian

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMySQLImage matches the oldest MySQL major the GRC app supports.
	DefaultMySQLImage = "mysql:8.0"

	// DefaultPostgresImage is the PostgreSQL image for driver tests.
	DefaultPostgresImage = "postgres:16-alpine"

	mysqlPort    = "3306/tcp"
	postgresPort = "5432/tcp"

	testDatabase = "grc"
	testUser     = "custodian"
	testPassword = "custodian-test-password"
)

// DatabaseContainer is a running database server with a test schema.
type DatabaseContainer struct {
	testcontainers.Container
	Engine   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
}

// DatabaseOption configures a database container.
type DatabaseOption func(*databaseConfig)

type databaseConfig struct {
	image        string
	startTimeout time.Duration
}

// WithImage sets a custom Docker image.
func WithImage(image string) DatabaseOption {
	return func(c *databaseConfig) {
		c.image = image
	}
}

// WithStartTimeout sets the timeout for waiting for the server to start.
func WithStartTimeout(timeout time.Duration) DatabaseOption {
	return func(c *databaseConfig) {
		c.startTimeout = timeout
	}
}

func newDatabaseConfig(image string, opts []DatabaseOption) *databaseConfig {
	cfg := &databaseConfig{image: image, startTimeout: 2 * time.Minute}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// NewMySQLContainer starts MySQL with an empty "grc" database.
func NewMySQLContainer(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := newDatabaseConfig(DefaultMySQLImage, opts)

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{mysqlPort},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": testPassword,
			"MYSQL_DATABASE":      testDatabase,
			"MYSQL_USER":          testUser,
			"MYSQL_PASSWORD":      testPassword,
		},
		// The entrypoint starts a temporary server first; the second
		// "ready for connections" is the real one.
		WaitingFor: wait.ForAll(
			wait.ForLog("ready for connections").WithOccurrence(2),
			wait.ForListeningPort(mysqlPort),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return startDatabase(ctx, "mysql", req, mysqlPort)
}

// NewPostgresContainer starts PostgreSQL with an empty "grc" database.
func NewPostgresContainer(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := newDatabaseConfig(DefaultPostgresImage, opts)

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return startDatabase(ctx, "postgres", req, postgresPort)
}

func startDatabase(ctx context.Context, engine string, req testcontainers.ContainerRequest, port nat.Port) (*DatabaseContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s container: %w", engine, err)
	}

	host, mapped, err := hostPort(ctx, container, port)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, err
	}

	return &DatabaseContainer{
		Container: container,
		Engine:    engine,
		Host:      host,
		Port:      mapped,
		Username:  testUser,
		Password:  testPassword,
		Database:  testDatabase,
	}, nil
}

// ExecSQL runs statements with the server's own client inside the
// container, so seeding does not depend on host tools.
func (c *DatabaseContainer) ExecSQL(ctx context.Context, statements string) error {
	var cmd []string
	switch c.Engine {
	case "mysql":
		cmd = []string{"mysql", "-u" + c.Username, "-p" + c.Password, c.Database, "-e", statements}
	case "postgres":
		cmd = []string{"psql", "-v", "ON_ERROR_STOP=1", "-U", c.Username, "-d", c.Database, "-c", statements}
	default:
		return fmt.Errorf("unknown engine %q", c.Engine)
	}
	return execInContainer(ctx, c.Container, cmd)
}

// QueryScalar runs a query returning one value and returns it trimmed.
func (c *DatabaseContainer) QueryScalar(ctx context.Context, query string) (string, error) {
	var cmd []string
	switch c.Engine {
	case "mysql":
		cmd = []string{"mysql", "-u" + c.Username, "-p" + c.Password, "-N", "-s", c.Database, "-e", query}
	case "postgres":
		cmd = []string{"psql", "-t", "-A", "-U", c.Username, "-d", c.Database, "-c", query}
	default:
		return "", fmt.Errorf("unknown engine %q", c.Engine)
	}

	code, out, err := c.Container.Exec(ctx, cmd, tcexec.Multiplexed())
	if err != nil {
		return "", fmt.Errorf("exec %s: %w", cmd[0], err)
	}
	data, err := io.ReadAll(out)
	if err != nil {
		return "", fmt.Errorf("read %s output: %w", cmd[0], err)
	}
	if code != 0 {
		return "", fmt.Errorf("%s exited with code %d: %s", cmd[0], code, data)
	}

	// The mysql client warns about the password on the command line.
	var value string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "mysql: [Warning]") {
			value = line
		}
	}
	return value, nil
}
