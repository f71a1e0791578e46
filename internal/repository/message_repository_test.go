package repository

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
)

func (s *StoreTestSuite) newMessage(threadID uint, dir models.MessageDirection, externalID *string, sentAt time.Time) *models.Message {
	m := &models.Message{
		ThreadID:   threadID,
		Sender:     "maria@example.com",
		Recipient:  "Sistema",
		BodyHTML:   "<p>ok</p>",
		Direction:  dir,
		ExternalID: externalID,
		SentAt:     sentAt,
	}
	require.NoError(s.T(), s.store.Messages().Create(s.ctx, m))
	return m
}

func (s *StoreTestSuite) TestMessageCreate_DuplicateExternalID() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	s.newMessage(th.ID, models.DirectionReceived, strPtr("<a@mail>"), time.Now())

	dup := &models.Message{ThreadID: th.ID, Sender: "x", Direction: models.DirectionReceived, ExternalID: strPtr("<a@mail>"), SentAt: time.Now()}
	err := s.store.Messages().Create(s.ctx, dup)
	assert.ErrorIs(s.T(), err, ErrDuplicateEntry)
}

func (s *StoreTestSuite) TestMessageCreate_ManyWithoutExternalID() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	s.newMessage(th.ID, models.DirectionReceived, nil, time.Now())
	s.newMessage(th.ID, models.DirectionReceived, nil, time.Now())

	msgs, err := s.store.Messages().ListByThread(s.ctx, th.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), msgs, 2)
}

func (s *StoreTestSuite) TestCreateWithAttachments() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	m := &models.Message{ThreadID: th.ID, Sender: "maria@example.com", Direction: models.DirectionReceived, SentAt: time.Now()}
	atts := []models.Attachment{
		{OriginalName: "boleto.pdf", StoredName: "1_boleto.pdf", Path: "uploads/1_boleto.pdf", SizeBytes: 10, MimeType: "application/pdf"},
		{OriginalName: "foto.png", StoredName: "2_foto.png", Path: "uploads/2_foto.png", SizeBytes: 20, MimeType: "image/png"},
	}

	require.NoError(s.T(), s.store.Messages().CreateWithAttachments(s.ctx, m, atts))

	got, err := s.store.Messages().GetByID(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), got.Attachments, 2)

	listed, err := s.store.Attachments().ListByMessage(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "boleto.pdf", listed[0].OriginalName)

	exists, err := s.store.Attachments().StoredNameExists(s.ctx, "2_foto.png")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	exists, err = s.store.Attachments().StoredNameExists(s.ctx, "3_nope.png")
	require.NoError(s.T(), err)
	assert.False(s.T(), exists)
}

func (s *StoreTestSuite) TestExternalIDLookups() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	s.newMessage(th.ID, models.DirectionSent, strPtr("out-1@svp"), time.Now())

	exists, err := s.store.Messages().ExistsByExternalID(s.ctx, "out-1@svp")
	require.NoError(s.T(), err)
	assert.True(s.T(), exists)

	threadID, err := s.store.Messages().FindThreadIDByExternalID(s.ctx, "out-1@svp")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), th.ID, threadID)

	_, err = s.store.Messages().FindThreadIDByExternalID(s.ctx, "missing@svp")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestLatestWithExternalID() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.newMessage(th.ID, models.DirectionSent, strPtr("first@svp"), base)
	want := s.newMessage(th.ID, models.DirectionReceived, strPtr("second@mail"), base.Add(time.Hour))
	s.newMessage(th.ID, models.DirectionReceived, nil, base.Add(2*time.Hour))

	got, err := s.store.Messages().LatestWithExternalID(s.ctx, th.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), want.ID, got.ID)

	empty := s.newThread(models.ThreadStatusOpen, time.Now())
	_, err = s.store.Messages().LatestWithExternalID(s.ctx, empty.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestListRecentOutbound() {
	th := s.newThread(models.ThreadStatusOpen, time.Now())
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		m := s.newMessage(th.ID, models.DirectionSent, nil, base.Add(time.Duration(i)*time.Minute))
		s.db.Model(m).Update("recipient", "maria@example.com")
	}
	s.newMessage(th.ID, models.DirectionReceived, nil, base.Add(time.Hour))

	ceo := access.ScopeFor(access.Viewer{Role: models.RoleCEO})
	rows, err := s.store.Messages().ListRecentOutbound(s.ctx, ceo, OutboundFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 20)
	assert.Equal(s.T(), base.Add(24*time.Minute), rows[0].SentAt.UTC())
	assert.Equal(s.T(), "101", rows[0].UnitNumber)
	assert.Equal(s.T(), "Cobrança", rows[0].Subject)

	rows, err = s.store.Messages().ListRecentOutbound(s.ctx, ceo, OutboundFilter{Subject: "COBRAN", Recipient: "maria", CondominiumID: s.condo.ID, Limit: 5})
	require.NoError(s.T(), err)
	assert.Len(s.T(), rows, 5)

	rows, err = s.store.Messages().ListRecentOutbound(s.ctx, ceo, OutboundFilter{Recipient: "joao"})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), rows)

	other := access.ScopeFor(access.Viewer{Role: models.RoleCollaborator, Portfolio: strPtr("B")})
	rows, err = s.store.Messages().ListRecentOutbound(s.ctx, other, OutboundFilter{})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), rows)
}
