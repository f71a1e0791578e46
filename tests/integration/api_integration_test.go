//go:build integration

package integration

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/svp-backend/internal/api/handlers"
	"github.com/welldanyogia/svp-backend/internal/models"
	"github.com/welldanyogia/svp-backend/internal/services"
	"github.com/welldanyogia/svp-backend/tests/fixtures"
)

// APIIntegrationTestSuite drives the router end to end over PostgreSQL
type APIIntegrationTestSuite struct {
	suite.Suite
	pg  *pgEnv
	app *app
	dir *fixtures.Directory
}

func (s *APIIntegrationTestSuite) SetupSuite() {
	pg, err := startPostgres(context.Background())
	s.Require().NoError(err)
	s.pg = pg
}

func (s *APIIntegrationTestSuite) TearDownSuite() {
	s.pg.close(context.Background())
}

func (s *APIIntegrationTestSuite) SetupTest() {
	s.Require().NoError(s.pg.truncate())
	dir, err := fixtures.SeedDirectory(s.pg.db)
	s.Require().NoError(err)
	s.dir = dir
	s.app = newApp(s.T(), s.pg)
}

func (s *APIIntegrationTestSuite) TearDownTest() {
	s.app.sender.AssertExpectations(s.T())
}

func TestAPIIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	suite.Run(t, new(APIIntegrationTestSuite))
}

func (s *APIIntegrationTestSuite) authed(method, path string, user models.User, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	req.Header.Set(echo.HeaderAuthorization, bearer(s.T(), user))
	return s.app.do(req)
}

func (s *APIIntegrationTestSuite) postInbound(form url.Values) *httptest.ResponseRecorder {
	form.Set("timestamp", "1700000000")
	form.Set("token", "tok-"+form.Get("Message-Id"))
	form.Set("signature", sign(form.Get("timestamp"), form.Get("token")))
	req := httptest.NewRequest(http.MethodPost, "/api/emails/webhook/inbound", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return s.app.do(req)
}

func (s *APIIntegrationTestSuite) seedSentThread(externalID string) *models.Thread {
	thread := fixtures.NewThreadBuilder().WithContact(s.dir.ContactA.ID).Build()
	s.Require().NoError(s.pg.db.Create(thread).Error)
	sent := fixtures.NewMessageBuilder().WithThread(thread.ID).WithExternalID(externalID).Build()
	s.Require().NoError(s.pg.db.Create(sent).Error)
	return thread
}

func (s *APIIntegrationTestSuite) TestInboundReplyAnswersThread() {
	// Arrange
	thread := s.seedSentThread("out-1@svp.com")

	// Act
	rec := s.postInbound(url.Values{
		"sender":      {"Maria Souza <maria@example.com>"},
		"recipient":   {appFrom},
		"subject":     {"Re: Cobrança condominial"},
		"body-html":   {"<p>Pago ontem</p>"},
		"Message-Id":  {"<in-1@mail.example.com>"},
		"In-Reply-To": {"<out-1@svp.com>"},
	})

	// Assert
	s.Equal(http.StatusOK, rec.Code)
	s.Equal("OK", rec.Body.String())

	rec = s.authed(http.MethodGet, "/api/comunicacoes", s.dir.CollabA, nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var threads []models.ThreadContext
	data(s.T(), rec, &threads)
	s.Require().Len(threads, 1)
	s.Equal(thread.ID, threads[0].ThreadID)
	s.Equal(models.ThreadStatusAnswered, threads[0].Status)

	rec = s.authed(http.MethodGet, "/api/comunicacoes/count-respondidas", s.dir.CEO, nil, "")
	var count map[string]int64
	data(s.T(), rec, &count)
	s.Equal(int64(1), count["count"])

	rec = s.authed(http.MethodGet, "/api/notificacoes", s.dir.CollabA, nil, "")
	var notifications services.NotificationList
	data(s.T(), rec, &notifications)
	s.Equal(int64(1), notifications.Unread)

	rec = s.authed(http.MethodGet, "/api/notificacoes", s.dir.CollabB, nil, "")
	data(s.T(), rec, &notifications)
	s.Zero(notifications.Unread)
}

func (s *APIIntegrationTestSuite) TestInboundRedeliveryIsAcknowledged() {
	s.seedSentThread("out-2@svp.com")
	form := func() url.Values {
		return url.Values{
			"sender":      {"maria@example.com"},
			"body-plain":  {"Pago"},
			"Message-Id":  {"<in-2@mail.example.com>"},
			"In-Reply-To": {"<out-2@svp.com>"},
		}
	}

	s.Equal(http.StatusOK, s.postInbound(form()).Code)
	s.Equal(http.StatusOK, s.postInbound(form()).Code)

	var n int64
	s.Require().NoError(s.pg.db.Model(&models.Message{}).Where("external_id = ?", "in-2@mail.example.com").Count(&n).Error)
	s.Equal(int64(1), n)
}

func (s *APIIntegrationTestSuite) TestInboundBadSignatureIsRejected() {
	form := url.Values{
		"sender":     {"maria@example.com"},
		"Message-Id": {"<forged@mail.example.com>"},
		"timestamp":  {"1700000000"},
		"token":      {"tok"},
		"signature":  {sign("1700000000", "other")},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/emails/webhook/reply", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	rec := s.app.do(req)

	s.Equal(http.StatusNotAcceptable, rec.Code)
	var n int64
	s.Require().NoError(s.pg.db.Model(&models.Message{}).Count(&n).Error)
	s.Zero(n)
}

func (s *APIIntegrationTestSuite) TestReplyThenDeliveryEvent() {
	// Arrange
	thread := s.seedSentThread("out-3@svp.com")
	s.app.sender.On("Send", mock.Anything, mock.Anything).Return("out-4@svp.com", nil).Once()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	s.Require().NoError(w.WriteField(handlers.ReplyTextField, "<p>Recebemos, obrigado.</p>"))
	s.Require().NoError(w.Close())

	// Act: reply through the API
	path := "/api/comunicacoes/" + strconv.FormatUint(uint64(thread.ID), 10) + "/responder"
	rec := s.authed(http.MethodPost, path, s.dir.CollabA, &body, w.FormDataContentType())
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	// Act: the provider reports delivery
	ts := "1700000100"
	event := `{"signature":{"timestamp":"` + ts + `","token":"ev-tok","signature":"` + sign(ts, "ev-tok") + `"},` +
		`"event-data":{"event":"delivered","recipient":"maria@example.com","message":{"headers":{"message-id":"out-4@svp.com"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/emails/webhook/events", strings.NewReader(event))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	s.Require().Equal(http.StatusOK, s.app.do(req).Code)

	// Assert
	rec = s.authed(http.MethodGet, "/api/eventos?email=maria", s.dir.CollabA, nil, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var report struct {
		Data  []models.DeliveryReportItem `json:"data"`
		Total int                         `json:"total"`
	}
	data(s.T(), rec, &report)

	var found bool
	for _, item := range report.Data {
		if item.ExternalID == "out-4@svp.com" {
			found = true
			s.NotNil(item.Status.Delivered)
			s.Nil(item.Status.Error)
			s.Equal(s.dir.UnitA.Number, item.Unit)
		}
	}
	s.True(found, "sent reply is listed")

	// CollabB sees nothing of portfolio A
	rec = s.authed(http.MethodGet, "/api/eventos", s.dir.CollabB, nil, "")
	data(s.T(), rec, &report)
	s.Zero(report.Total)
}

func (s *APIIntegrationTestSuite) TestContactsReplace() {
	path := "/api/unidades/" + strconv.FormatUint(uint64(s.dir.UnitA.ID), 10) + "/contatos"
	body := bytes.NewBufferString(`{"emails": ["maria@example.com", "sindica@example.com"]}`)

	rec := s.authed(http.MethodPut, path, s.dir.CollabA, body, echo.MIMEApplicationJSON)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.authed(http.MethodGet, path, s.dir.CollabA, nil, "")
	var contacts []models.Contact
	data(s.T(), rec, &contacts)
	s.Len(contacts, 2)

	rec = s.authed(http.MethodGet, path, s.dir.CollabB, nil, "")
	s.Equal(http.StatusForbidden, rec.Code)
}
