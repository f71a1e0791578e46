package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/api/middleware"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/logger"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"github.com/welldanyogia/svp-backend/tests/mocks"
	"gorm.io/gorm"
)

// handlerSuite wires the real services over a fresh SQLite database so the
// handlers are exercised end to end below the router
type handlerSuite struct {
	suite.Suite
	ctx       context.Context
	echo      *echo.Echo
	db        *gorm.DB
	store     repository.Store
	uploads   storage.FileStorage
	sender    *mocks.MockSender
	publisher *mocks.MockPublisher

	threads      *services.ThreadService
	materializer *services.Materializer
	notifier     *services.Notifier
	directory    *services.DirectoryService
	events       *services.DeliveryEventRecorder
	security     *logger.SecurityLogger
	log          *slog.Logger

	condoA, condoB *models.Condominium
	unitA, unitB   *models.Unit
	contactA       *models.Contact
	contactB       *models.Contact

	ceo, collabA, collabB *models.User
}

func (s *handlerSuite) SetupTest() {
	db, err := database.Connect(database.Options{URL: "sqlite:file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate(db))

	s.ctx = context.Background()
	s.echo = echo.New()
	s.db = db
	s.store = repository.NewStore(db)
	s.uploads, err = storage.NewLocalStorage(s.T().TempDir())
	require.NoError(s.T(), err)
	s.sender = new(mocks.MockSender)
	s.publisher = mocks.NewMockPublisher()
	s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.security = logger.NewSecurityLogger(s.log)

	s.materializer = services.NewMaterializer(s.uploads, "http://localhost:3001", s.log)
	s.threads = services.NewThreadService(s.store, s.sender, s.materializer, s.publisher, "cobranca@svp.com", s.log)
	s.notifier = services.NewNotifier(s.store, s.publisher, s.log)
	s.directory = services.NewDirectoryService(s.store, s.log)
	s.events = services.NewDeliveryEventRecorder(s.store, s.log)

	a, b := "A", "B"
	s.condoA = s.create(&models.Condominium{Name: "Residencial Aurora", Portfolio: &a, ManagerEmail: "sindico@aurora.com"}).(*models.Condominium)
	s.condoB = s.create(&models.Condominium{Name: "Edifício Boreal", Portfolio: &b}).(*models.Condominium)
	s.unitA = s.create(&models.Unit{CondominiumID: s.condoA.ID, Number: "101", OwnerName: "Maria Souza"}).(*models.Unit)
	s.unitB = s.create(&models.Unit{CondominiumID: s.condoB.ID, Number: "202", OwnerName: "João Lima"}).(*models.Unit)
	s.contactA = s.create(&models.Contact{UnitID: s.unitA.ID, Email: "maria@example.com"}).(*models.Contact)
	s.contactB = s.create(&models.Contact{UnitID: s.unitB.ID, Email: "joao@example.com"}).(*models.Contact)

	s.ceo = s.create(&models.User{Name: "Ana", Email: "ana@svp.com", Role: models.RoleCEO}).(*models.User)
	s.collabA = s.create(&models.User{Name: "Bruno", Email: "bruno@svp.com", Role: models.RoleCollaborator, Portfolio: &a}).(*models.User)
	s.collabB = s.create(&models.User{Name: "Carla", Email: "carla@svp.com", Role: models.RoleCollaborator, Portfolio: &b}).(*models.User)
}

func (s *handlerSuite) TearDownTest() {
	s.sender.AssertExpectations(s.T())
	database.Close(s.db)
}

func (s *handlerSuite) create(v any) any {
	require.NoError(s.T(), s.db.Create(v).Error)
	return v
}

func (s *handlerSuite) newThread(contact *models.Contact, status models.ThreadStatus) *models.Thread {
	th := &models.Thread{ContactID: contact.ID, InitialSubject: "Cobrança condominial", Status: status}
	require.NoError(s.T(), s.store.Threads().Create(s.ctx, th))
	return th
}

// context builds an echo context for req, authenticated as user when non-nil,
// with the given name/value path parameters
func (s *handlerSuite) context(rec *httptest.ResponseRecorder, req *http.Request, user *models.User, params ...string) echo.Context {
	c := s.echo.NewContext(req, rec)
	if user != nil {
		middleware.WithViewer(c, access.ViewerOf(*user))
	}
	if len(params) > 0 {
		names := make([]string, 0, len(params)/2)
		values := make([]string, 0, len(params)/2)
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c
}

// serve runs handler against req and returns the recorder
func (s *handlerSuite) serve(handler echo.HandlerFunc, req *http.Request, user *models.User, params ...string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	require.NoError(s.T(), handler(s.context(rec, req, user, params...)))
	return rec
}

// decode unmarshals the data member of a success envelope into v
func (s *handlerSuite) decode(rec *httptest.ResponseRecorder, v any) {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(s.T(), json.Unmarshal(rec.Body.Bytes(), &env))
	require.True(s.T(), env.Success, rec.Body.String())
	require.NoError(s.T(), json.Unmarshal(env.Data, v))
}

func idParam(id uint) string { return strconv.FormatUint(uint64(id), 10) }
