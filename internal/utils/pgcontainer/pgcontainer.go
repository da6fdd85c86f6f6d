package pgcontainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/insurezeal/backoffice/internal/model"
)

const (
	postgresImage = "postgres"
	postgresTag   = "16-alpine"

	dbUser     = "backoffice"
	dbPassword = "backoffice"
	dbName     = "backoffice_test"

	containerLifetimeSec = 300
	connectTimeout       = 5 * time.Second
)

// PGContainer runs a throwaway postgres in docker for integration
// tests. One container serves a whole test binary via TestMain.
type PGContainer struct {
	log      *slog.Logger
	pool     *dockertest.Pool
	resource *dockertest.Resource
	dsn      string
}

func New(log *slog.Logger) *PGContainer {
	return &PGContainer{
		log:      log,
		pool:     nil,
		resource: nil,
		dsn:      "",
	}
}

func (c *PGContainer) RunContainer() error {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return fmt.Errorf("failed to construct docker pool: %w", err)
	}
	if err = pool.Client.Ping(); err != nil {
		return fmt.Errorf("failed to connect to docker: %w", err)
	}
	c.pool = pool

	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: postgresImage,
			Tag:        postgresTag,
			Env: []string{
				"POSTGRES_USER=" + dbUser,
				"POSTGRES_PASSWORD=" + dbPassword,
				"POSTGRES_DB=" + dbName,
				"listen_addresses = '*'",
			},
		},
		func(config *docker.HostConfig) {
			config.AutoRemove = true
			config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
	if err != nil {
		return fmt.Errorf("failed to start postgres container: %w", err)
	}
	c.resource = resource
	if err = resource.Expire(containerLifetimeSec); err != nil {
		return fmt.Errorf("failed to set container expiration: %w", err)
	}

	hostPort := resource.GetHostPort("5432/tcp")
	c.dsn = fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		dbUser, dbPassword, hostPort, dbName)

	pool.MaxWait = 60 * time.Second
	if err = pool.Retry(c.tryConnect); err != nil {
		return fmt.Errorf("failed to await postgres readiness: %w", err)
	}

	c.log.LogAttrs(context.TODO(),
		slog.LevelInfo,
		"postgres container is up",
		slog.String("dsn", c.dsn),
	)
	return nil
}

func (c *PGContainer) GetDSN() string {
	return c.dsn
}

func (c *PGContainer) Close() {
	if c.pool == nil || c.resource == nil {
		return
	}
	if err := c.pool.Purge(c.resource); err != nil {
		c.log.LogAttrs(context.TODO(),
			slog.LevelError,
			"failed to purge postgres container",
			slog.Any(model.KeyLoggerError, err),
		)
	}
}

func (c *PGContainer) tryConnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, c.dsn)
	if err != nil {
		return fmt.Errorf("postgres is not ready: %w", err)
	}
	defer func() {
		_ = conn.Close(ctx)
	}()

	if err = conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	return nil
}
