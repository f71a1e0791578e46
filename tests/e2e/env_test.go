//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/smtp"
	"gorm.io/gorm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startPostgres starts a migrated postgres:16-alpine container
func startPostgres(ctx context.Context) (testcontainers.Container, *gorm.DB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "svp",
				"POSTGRES_PASSWORD": "svp",
				"POSTGRES_DB":       "svp_e2e",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("start postgres: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return container, nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return container, nil, err
	}

	db, err := database.Connect(database.Options{
		URL: fmt.Sprintf("host=%s port=%s user=svp password=svp dbname=svp_e2e sslmode=disable", host, port.Port()),
	})
	if err != nil {
		return container, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return container, db, err
	}
	return container, db, nil
}

// mailbox records every message delivered to it. It stands in for the
// outbound relay and the recipients behind it.
type mailbox struct {
	mu   sync.Mutex
	mail []*services.InboundMail
}

func (m *mailbox) Receive(_ context.Context, mail *services.InboundMail) (*services.ReceiveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mail = append(m.mail, mail)
	return &services.ReceiveResult{Outcome: services.OutcomeStored}, nil
}

func (m *mailbox) Last() *services.InboundMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mail) == 0 {
		return nil
	}
	return m.mail[len(m.mail)-1]
}

// listenSMTP serves receiver on a loopback port and returns the server and its port
func listenSMTP(receiver smtp.Receiver, log *slog.Logger) (*gosmtp.Server, int, error) {
	server := smtp.NewSecureServer(
		smtp.NewBackend(&smtp.BackendConfig{Receiver: receiver, Logger: log}),
		&smtp.ServerConfig{Domain: "localhost", AllowInsecure: true},
	)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, 0, err
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
			log.Error("smtp server stopped", slog.Any("error", err))
		}
	}()
	return server, listener.Addr().(*net.TCPAddr).Port, nil
}
