package repository

import (
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/svp-backend/internal/models"
)

func (s *StoreTestSuite) TestNotifications_ScopedToUser() {
	repo := s.store.Notifications()
	for i := 0; i < 3; i++ {
		require.NoError(s.T(), repo.Create(s.ctx, &models.Notification{UserID: 1, Title: "t", Kind: models.NotificationKindInfo}))
	}
	other := &models.Notification{UserID: 2, Title: "other", Kind: models.NotificationKindInfo}
	require.NoError(s.T(), repo.Create(s.ctx, other))

	list, err := repo.ListByUser(s.ctx, 1, 20)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, 3)

	// user 1 cannot touch user 2's notification
	assert.ErrorIs(s.T(), repo.MarkRead(s.ctx, 1, other.ID), ErrNotFound)

	require.NoError(s.T(), repo.MarkRead(s.ctx, 1, list[0].ID))
	unread, err := repo.CountUnread(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), unread)

	n, err := repo.MarkAllRead(s.ctx, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), n)

	unread, err = repo.CountUnread(s.ctx, 2)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), unread)
}

func (s *StoreTestSuite) TestNotifications_UnreadFirst() {
	repo := s.store.Notifications()
	old := &models.Notification{UserID: 1, Title: "old", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(s.T(), repo.Create(s.ctx, old))
	read := &models.Notification{UserID: 1, Title: "read", Read: true}
	require.NoError(s.T(), repo.Create(s.ctx, read))

	list, err := repo.ListByUser(s.ctx, 1, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 2)
	assert.Equal(s.T(), "old", list[0].Title)
}

func (s *StoreTestSuite) TestDeliveryEvents() {
	repo := s.store.DeliveryEvents()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(s.T(), repo.Create(s.ctx, &models.DeliveryEvent{ExternalID: "m1", Kind: models.EventDelivered, OccurredAt: base.Add(time.Minute)}))
	require.NoError(s.T(), repo.Create(s.ctx, &models.DeliveryEvent{ExternalID: "m1", Kind: models.EventProcessed, OccurredAt: base}))
	require.NoError(s.T(), repo.Create(s.ctx, &models.DeliveryEvent{ExternalID: "m2", Kind: models.EventOpened, OccurredAt: base}))

	events, err := repo.ListByExternalIDs(s.ctx, []string{"m1"})
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)
	assert.Equal(s.T(), models.EventProcessed, events[0].Kind)

	events, err = repo.ListByExternalIDs(s.ctx, nil)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), events)
}
