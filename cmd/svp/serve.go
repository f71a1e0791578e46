package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/welldanyogia/svp-backend/internal/api"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	"github.com/welldanyogia/svp-backend/internal/config"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/mailer"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/smtp"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"github.com/welldanyogia/svp-backend/internal/websocket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	shutdownTimeout    = 10 * time.Second
	limiterCleanupTick = 5 * time.Minute
)

func newServeCmd(configPath *string) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, webhooks, real-time hub and optional SMTP listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, db, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if migrate {
				if err := database.Migrate(db); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log, db)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "run schema migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, db *gorm.DB) error {
	cfg.LogConfig(log)
	security := logger.NewSecurityLogger(log)

	uploads, err := storage.NewLocalStorage(cfg.UploadsDir)
	if err != nil {
		return err
	}

	store := repository.NewStore(db)
	hub := websocket.NewHub(log)
	sender := mailer.NewSMTPSender(mailer.Config{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		Username: cfg.EmailUser,
		Password: cfg.EmailPass,
		From:     cfg.EmailFrom,
		ReplyTo:  cfg.EmailReplyTo,
	}, log)

	materializer := services.NewMaterializer(uploads, cfg.AppURL, log)
	notifier := services.NewNotifier(store, hub, log)
	threads := services.NewThreadService(store, sender, materializer, hub, cfg.EmailFrom, log)
	inbound := services.NewInboundMailService(store, materializer, notifier, hub, log)
	events := services.NewDeliveryEventRecorder(store, log)
	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)

	router, err := api.NewRouter(&api.RouterConfig{
		DB:                db,
		Uploads:           uploads,
		Logger:            log,
		Security:          security,
		Threads:           threads,
		Materializer:      materializer,
		Notifier:          notifier,
		Directory:         services.NewDirectoryService(store, log),
		Events:            events,
		Inbound:           inbound,
		Hub:               hub,
		JWTSecret:         cfg.JWTSecret,
		MailgunSigningKey: cfg.MailgunSigningKey,
		AllowedOrigins:    cfg.Origins(),
		Production:        cfg.IsProduction(),
		Limiter:           limiter,
	})
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.APIPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheduler := cron.New()
	sweeper := services.NewUploadSweeper(store, uploads, cfg.UploadSweepGrace, log)
	if _, err := sweeper.Schedule(ctx, scheduler, cfg.UploadSweepSchedule); err != nil {
		return fmt.Errorf("schedule upload sweep %q: %w", cfg.UploadSweepSchedule, err)
	}

	var smtpServer *gosmtp.Server
	if cfg.SMTPEnabled {
		smtpServer, err = newSMTPServer(ctx, cfg, inbound, scheduler, log)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		limiter.RunCleanup(gctx, limiterCleanupTick)
		return nil
	})

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	g.Go(func() error {
		log.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if smtpServer != nil {
		g.Go(func() error {
			log.Info("SMTP server listening", slog.String("addr", smtpServer.Addr))
			if err := smtpServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				return fmt.Errorf("smtp server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if smtpServer != nil {
			if err := smtpServer.Close(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				errs = append(errs, fmt.Errorf("smtp shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	err = g.Wait()
	log.Info("Server stopped")
	return err
}

func newSMTPServer(ctx context.Context, cfg *config.Config, receiver smtp.Receiver, scheduler *cron.Cron, log *slog.Logger) (*gosmtp.Server, error) {
	serverCfg := &smtp.ServerConfig{
		Addr:          cfg.SMTPAddr,
		Domain:        cfg.SMTPDomain,
		AllowInsecure: !cfg.IsProduction(),
	}

	if cfg.SMTPTLSEnabled() {
		certs, err := smtp.NewCertificateStore(cfg.SMTPTLSCert, cfg.SMTPTLSKey, log)
		if err != nil {
			return nil, fmt.Errorf("smtp tls: %w", err)
		}
		if _, err := certs.Schedule(ctx, scheduler, cfg.SMTPTLSReload); err != nil {
			return nil, fmt.Errorf("schedule certificate reload %q: %w", cfg.SMTPTLSReload, err)
		}
		serverCfg.TLSConfig = certs.TLSConfig()
	}

	backend := smtp.NewBackend(&smtp.BackendConfig{Receiver: receiver, Logger: log})
	return smtp.NewSecureServer(backend, serverCfg), nil
}
