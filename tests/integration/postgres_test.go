//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/svp-backend/internal/database"
	"gorm.io/gorm"
)

const (
	pgUser     = "svp"
	pgPassword = "svp"
	pgDatabase = "svp_test"
)

// pgEnv is a migrated PostgreSQL database running in a container
type pgEnv struct {
	container testcontainers.Container
	db        *gorm.DB
}

// startPostgres starts postgres:16-alpine and migrates the schema
func startPostgres(ctx context.Context) (*pgEnv, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     pgUser,
			"POSTGRES_PASSWORD": pgPassword,
			"POSTGRES_DB":       pgDatabase,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port.Port(), pgUser, pgPassword, pgDatabase)
	db, err := database.Connect(database.Options{URL: dsn})
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &pgEnv{container: container, db: db}, nil
}

// truncate empties every table and resets identities
func (p *pgEnv) truncate() error {
	return p.db.Exec(`TRUNCATE TABLE delivery_events, notifications, attachments, messages, threads,
		contacts, units, users, condominiums RESTART IDENTITY CASCADE`).Error
}

func (p *pgEnv) close(ctx context.Context) {
	if p == nil {
		return
	}
	_ = database.Close(p.db)
	_ = p.container.Terminate(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
