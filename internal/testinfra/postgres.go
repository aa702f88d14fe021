//go:build integration

package testinfra

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"

	"github.com/laocinema/lao-cinema-api/internal/config"
	"github.com/laocinema/lao-cinema-api/internal/database"
	"github.com/laocinema/lao-cinema-api/internal/logging"
)

const (
	DefaultPostgresImage = "postgres:16-alpine"

	postgresUser     = "lao"
	postgresPassword = "lao"
	postgresDB       = "lao_cinema_test"
)

// NewPostgres starts PostgreSQL, applies every migration and returns a
// connected *bun.DB. The container is terminated when the test ends.
func NewPostgres(t *testing.T) *bun.DB {
	t.Helper()
	SkipIfNoDocker(t)

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        DefaultPostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// postgres logs readiness twice: once for the init server, once for the real one
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start postgres container")
	terminateOnCleanup(t, container)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DatabaseConfig{
		Host:         host,
		Port:         port.Port(),
		User:         postgresUser,
		Password:     postgresPassword,
		DBName:       postgresDB,
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	require.NoError(t, database.MigrateUp(cfg.URL(), logging.Discard()))

	db, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}
