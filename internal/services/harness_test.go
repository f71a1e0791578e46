package services

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/database"
	"github.com/welldanyogia/svp-backend/internal/mailer"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/repository"
	"github.com/welldanyogia/svp-backend/internal/storage"
	"gorm.io/gorm"
)

const testPublicURL = "http://localhost:3001"

// MockSender is a mock implementation of mailer.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg *mailer.Outgoing) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

type published struct {
	Channel string
	Event   string
	Payload any
}

// recordingPublisher captures published events
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(channel, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Channel: channel, Event: event, Payload: payload})
}

func (p *recordingPublisher) on(channel string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// serviceSuite is the shared fixture of the service tests: a fresh SQLite
// database, an uploads directory and a small directory of condominiums,
// contacts and users
type serviceSuite struct {
	suite.Suite
	ctx       context.Context
	db        *gorm.DB
	store     repository.Store
	uploads   storage.FileStorage
	dir       string
	publisher *recordingPublisher

	condoA, condoB *models.Condominium
	unitA, unitB   *models.Unit
	contactA       *models.Contact
	contactB       *models.Contact

	ceo, collabA, collabB, collabNone *models.User
}

func (s *serviceSuite) SetupTest() {
	db, err := database.Connect(database.Options{URL: "sqlite:file:" + uuid.NewString() + "?mode=memory&cache=shared"})
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.Migrate(db))

	s.ctx = context.Background()
	s.db = db
	s.store = repository.NewStore(db)
	s.dir = s.T().TempDir()
	s.uploads, err = storage.NewLocalStorage(s.dir)
	require.NoError(s.T(), err)
	s.publisher = &recordingPublisher{}

	a, b := "A", "B"
	s.condoA = s.create(&models.Condominium{Name: "Residencial Aurora", Portfolio: &a, ManagerEmail: "sindico@aurora.com, adm@aurora.com"}).(*models.Condominium)
	s.condoB = s.create(&models.Condominium{Name: "Edifício Boreal", Portfolio: &b}).(*models.Condominium)
	s.unitA = s.create(&models.Unit{CondominiumID: s.condoA.ID, Number: "101", OwnerName: "Maria Souza"}).(*models.Unit)
	s.unitB = s.create(&models.Unit{CondominiumID: s.condoB.ID, Number: "202", OwnerName: "João Lima"}).(*models.Unit)
	s.contactA = s.create(&models.Contact{UnitID: s.unitA.ID, Email: "maria@example.com"}).(*models.Contact)
	s.contactB = s.create(&models.Contact{UnitID: s.unitB.ID, Email: "joao@example.com"}).(*models.Contact)

	s.ceo = s.create(&models.User{Name: "Ana", Email: "ana@svp.com", Role: models.RoleCEO}).(*models.User)
	s.collabA = s.create(&models.User{Name: "Bruno", Email: "bruno@svp.com", Role: models.RoleCollaborator, Portfolio: &a}).(*models.User)
	s.collabB = s.create(&models.User{Name: "Carla", Email: "carla@svp.com", Role: models.RoleCollaborator, Portfolio: &b}).(*models.User)
	s.collabNone = s.create(&models.User{Name: "Davi", Email: "davi@svp.com", Role: models.RoleCollaborator}).(*models.User)
}

func (s *serviceSuite) TearDownTest() {
	database.Close(s.db)
}

func (s *serviceSuite) create(v any) any {
	require.NoError(s.T(), s.db.Create(v).Error)
	return v
}

func (s *serviceSuite) newThread(contact *models.Contact, status models.ThreadStatus) *models.Thread {
	th := &models.Thread{ContactID: contact.ID, InitialSubject: "Cobrança condominial", Status: status}
	require.NoError(s.T(), s.store.Threads().Create(s.ctx, th))
	return th
}

func (s *serviceSuite) newMessage(th *models.Thread, dir models.MessageDirection, externalID string) *models.Message {
	msg := &models.Message{ThreadID: th.ID, Sender: "cobranca@svp.com", Recipient: "maria@example.com", BodyHTML: "<p>oi</p>", Direction: dir}
	if externalID != "" {
		msg.ExternalID = &externalID
	}
	require.NoError(s.T(), s.store.Messages().Create(s.ctx, msg))
	return msg
}

func (s *serviceSuite) count(model any) int64 {
	var n int64
	require.NoError(s.T(), s.db.Model(model).Count(&n).Error)
	return n
}

func (s *serviceSuite) uploadedFiles() []string {
	entries, err := os.ReadDir(s.dir)
	require.NoError(s.T(), err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (s *serviceSuite) reloadThread(id uint) *models.Thread {
	th, err := s.store.Threads().GetByID(s.ctx, id)
	require.NoError(s.T(), err)
	return th
}

func viewerOf(u *models.User) access.Viewer { return access.ViewerOf(*u) }

func uintStr(v uint) string { return strconv.FormatUint(uint64(v), 10) }
