package repository

import (
	"strings"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/svp-backend/internal/access"
	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
)

func (s *StoreTestSuite) TestFindActiveForContact_SkipsClosedAndPrefersNewest() {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.newThread(models.ThreadStatusOpen, base)
	newest := s.newThread(models.ThreadStatusRead, base.Add(time.Hour))
	s.newThread(models.ThreadStatusClosed, base.Add(2*time.Hour))

	th, err := s.store.Threads().FindActiveForContact(s.ctx, s.contact.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), newest.ID, th.ID)
}

func (s *StoreTestSuite) TestFindActiveForContact_TieBreaksOnID() {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.newThread(models.ThreadStatusOpen, at)
	second := s.newThread(models.ThreadStatusOpen, at)

	th, err := s.store.Threads().FindActiveForContact(s.ctx, s.contact.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), second.ID, th.ID)
}

func (s *StoreTestSuite) TestFindActiveForContact_NoneOpen() {
	s.newThread(models.ThreadStatusClosed, time.Now())
	_, err := s.store.Threads().FindActiveForContact(s.ctx, s.contact.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestGetContext() {
	th := s.newThread(models.ThreadStatusAnswered, time.Now())

	tc, err := s.store.Threads().GetContext(s.ctx, th.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), th.ID, tc.ThreadID)
	assert.Equal(s.T(), "maria@example.com", tc.ContactEmail)
	assert.Equal(s.T(), "101", tc.UnitNumber)
	assert.Equal(s.T(), "Residencial Aurora", tc.CondominiumName)
	require.NotNil(s.T(), tc.Portfolio)
	assert.Equal(s.T(), "A", *tc.Portfolio)

	_, err = s.store.Threads().GetContext(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestUpdateStatus() {
	th := s.newThread(models.ThreadStatusAnswered, time.Now())
	require.NoError(s.T(), s.store.Threads().UpdateStatus(s.ctx, th.ID, models.ThreadStatusRead))

	got, err := s.store.Threads().GetByID(s.ctx, th.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), models.ThreadStatusRead, got.Status)

	assert.ErrorIs(s.T(), s.store.Threads().UpdateStatus(s.ctx, 9999, models.ThreadStatusRead), ErrNotFound)
}

func (s *StoreTestSuite) TestList_AnsweredFirstThenNewest() {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	older := s.newThread(models.ThreadStatusOpen, base)
	answered := s.newThread(models.ThreadStatusAnswered, base.Add(-time.Hour))
	newer := s.newThread(models.ThreadStatusRead, base.Add(time.Hour))

	rows, err := s.store.Threads().List(s.ctx, access.ScopeFor(access.Viewer{Role: models.RoleCEO}))
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 3)
	assert.Equal(s.T(), answered.ID, rows[0].ThreadID)
	assert.Equal(s.T(), newer.ID, rows[1].ThreadID)
	assert.Equal(s.T(), older.ID, rows[2].ThreadID)
}

func (s *StoreTestSuite) TestList_AnsweredNewestFirstAmongThemselves() {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	read := s.newThread(models.ThreadStatusRead, base.Add(2*time.Hour))
	first := s.newThread(models.ThreadStatusAnswered, base)
	second := s.newThread(models.ThreadStatusAnswered, base.Add(time.Hour))

	rows, err := s.store.Threads().List(s.ctx, access.ScopeFor(access.Viewer{Role: models.RoleCEO}))
	require.NoError(s.T(), err)
	require.Len(s.T(), rows, 3)
	assert.Equal(s.T(), []uint{second.ID, first.ID, read.ID},
		[]uint{rows[0].ThreadID, rows[1].ThreadID, rows[2].ThreadID})
}

func (s *StoreTestSuite) TestList_OrderClauseKeepsStatusRank() {
	sql := s.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []models.ThreadContext
		return tx.Table("threads").Order(answeredFirst).Scan(&rows)
	})

	assert.Contains(s.T(), sql, "ORDER BY CASE WHEN threads.status = ")
	assert.True(s.T(), strings.HasSuffix(sql, "threads.created_at DESC, threads.id DESC"), sql)
}

func (s *StoreTestSuite) TestList_ScopedByPortfolio() {
	s.newThread(models.ThreadStatusAnswered, time.Now())

	own := access.ScopeFor(access.Viewer{Role: models.RoleCollaborator, Portfolio: strPtr("A")})
	other := access.ScopeFor(access.Viewer{Role: models.RoleCollaborator, Portfolio: strPtr("B")})
	none := access.ScopeFor(access.Viewer{Role: models.RoleCollaborator})

	rows, err := s.store.Threads().List(s.ctx, own)
	require.NoError(s.T(), err)
	assert.Len(s.T(), rows, 1)

	rows, err = s.store.Threads().List(s.ctx, other)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), rows)

	rows, err = s.store.Threads().List(s.ctx, none)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), rows)
}

func (s *StoreTestSuite) TestCountByStatus() {
	s.newThread(models.ThreadStatusAnswered, time.Now())
	s.newThread(models.ThreadStatusAnswered, time.Now())
	s.newThread(models.ThreadStatusOpen, time.Now())

	count, err := s.store.Threads().CountByStatus(s.ctx, access.ScopeFor(access.Viewer{Role: models.RoleSupervisor}), models.ThreadStatusAnswered)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), count)

	count, err = s.store.Threads().CountByStatus(s.ctx, access.ScopeFor(access.Viewer{Role: models.RoleCollaborator, Portfolio: strPtr("B")}), models.ThreadStatusAnswered)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), count)
}
