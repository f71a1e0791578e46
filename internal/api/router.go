package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/svp-backend/internal/api/handlers"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"github.com/welldanyogia/svp-backend/internal/websocket"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	DB       *gorm.DB
	Uploads  storage.FileStorage
	Logger   *slog.Logger
	Security *logger.SecurityLogger

	Threads      *services.ThreadService
	Materializer *services.Materializer
	Notifier     *services.Notifier
	Directory    *services.DirectoryService
	Events       *services.DeliveryEventRecorder
	Inbound      handlers.InboundReceiver
	Hub          *websocket.Hub

	// Security configuration
	JWTSecret         string
	MailgunSigningKey string   // empty disables webhook signature checks
	AllowedOrigins    []string // CORS and websocket origins
	Production        bool
	Limiter           *middleware.IPRateLimiter // nil disables rate limiting
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware order matters: recover first, log last so it sees the final status
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.SecureHeaders(cfg.Production))
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.Production))
	if cfg.Limiter != nil {
		e.Use(middleware.RateLimiter(cfg.Limiter, cfg.Security))
	}
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Uploads)
	threadHandler := handlers.NewThreadHandler(cfg.Threads, cfg.Security, cfg.Logger)
	attachmentHandler := handlers.NewAttachmentHandler(cfg.Threads, cfg.Materializer, cfg.Logger)
	notificationHandler := handlers.NewNotificationHandler(cfg.Notifier)
	reportHandler := handlers.NewReportHandler(cfg.Events)
	contactHandler := handlers.NewContactHandler(cfg.Directory)
	webhookHandler, err := handlers.NewWebhookHandler(handlers.WebhookConfig{
		Inbound:    cfg.Inbound,
		Events:     cfg.Events,
		SigningKey: cfg.MailgunSigningKey,
		Security:   cfg.Security,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	wsHandler := handlers.NewWebSocketHandler(
		cfg.Hub,
		websocket.NewSecureUpgrader(cfg.AllowedOrigins, cfg.Security),
		cfg.Threads.CanView,
		cfg.Logger,
	)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	// Materialized attachments referenced from message bodies
	e.Static(services.UploadsRoute, cfg.Uploads.Dir())

	// Provider webhooks authenticate by signature, not by JWT
	signed := middleware.MailgunSignature(cfg.MailgunSigningKey, cfg.Security)
	e.POST("/api/emails/webhook/events", webhookHandler.Events)
	for _, route := range []string{"mailgun", "inbound", "reply"} {
		e.POST("/api/emails/webhook/"+route, webhookHandler.Inbound, signed)
	}

	auth := middleware.JWTAuth(cfg.JWTSecret, cfg.Logger, cfg.Security)

	e.GET("/ws", wsHandler.Serve, auth)

	// API routes
	api := e.Group("/api", auth)

	threads := api.Group("/comunicacoes")
	threads.GET("", threadHandler.List)
	threads.GET("/count-respondidas", threadHandler.CountAnswered)
	threads.POST("/autorizacao", threadHandler.RequestAuthorization)
	threads.GET("/:id", threadHandler.Get)
	threads.PATCH("/:id/ler", threadHandler.MarkRead)
	threads.PATCH("/:id/fechar", threadHandler.Close)
	threads.POST("/:id/responder", threadHandler.Reply)

	notifications := api.Group("/notificacoes")
	notifications.GET("", notificationHandler.List)
	notifications.PATCH("/todas-lidas", notificationHandler.MarkAllRead)
	notifications.PATCH("/:id/lida", notificationHandler.MarkRead)

	api.GET("/eventos", reportHandler.Deliveries)

	units := api.Group("/unidades")
	units.GET("/:id/contatos", contactHandler.List)
	units.PUT("/:id/contatos", contactHandler.Replace)

	api.GET("/anexos/:id/download", attachmentHandler.Download)

	return e, nil
}
