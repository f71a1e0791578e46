//go:build integration

package integration

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/svp-backend/internal/api"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"github.com/welldanyogia/svp-backend/internal/websocket"
	"github.com/welldanyogia/svp-backend/tests/mocks"
)

const (
	appSecret     = "integration-secret"
	appSigningKey = "key-integration"
	appFrom       = "cobranca@svp.com"
)

// app is the HTTP surface wired the way the serve command wires it, with a
// mocked mail transport
type app struct {
	router  *echo.Echo
	sender  *mocks.MockSender
	inbound *services.InboundMailService
	store   repository.Store
}

func newApp(t *testing.T, pg *pgEnv) *app {
	t.Helper()
	log := discardLogger()

	uploads, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub(log)
	go hub.Run(ctx)

	store := repository.NewStore(pg.db)
	sender := new(mocks.MockSender)
	materializer := services.NewMaterializer(uploads, "http://localhost:3001", log)
	notifier := services.NewNotifier(store, hub, log)
	inbound := services.NewInboundMailService(store, materializer, notifier, hub, log)
	events := services.NewDeliveryEventRecorder(store, log)

	router, err := api.NewRouter(&api.RouterConfig{
		DB:                pg.db,
		Uploads:           uploads,
		Logger:            log,
		Security:          logger.NewSecurityLogger(log),
		Threads:           services.NewThreadService(store, sender, materializer, hub, appFrom, log),
		Materializer:      materializer,
		Notifier:          notifier,
		Directory:         services.NewDirectoryService(store, log),
		Events:            events,
		Inbound:           inbound,
		Hub:               hub,
		JWTSecret:         appSecret,
		MailgunSigningKey: appSigningKey,
		AllowedOrigins:    []string{"http://localhost:5173"},
		Limiter:           middleware.NewIPRateLimiter(1000, 1000),
	})
	require.NoError(t, err)

	return &app{router: router, sender: sender, inbound: inbound, store: store}
}

func (a *app) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// bearer returns a signed token acting as u
func bearer(t *testing.T, u models.User) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Portfolio: u.Portfolio,
	}).SignedString([]byte(appSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// sign returns the Mailgun signature for timestamp and token
func sign(timestamp, token string) string {
	mac := hmac.New(sha256.New, []byte(appSigningKey))
	mac.Write([]byte(timestamp + token))
	return hex.EncodeToString(mac.Sum(nil))
}

// data decodes the data member of a success envelope
func data(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	require.True(t, env.Success, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, v))
}
