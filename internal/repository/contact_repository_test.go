package repository

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/svp-backend/internal/models"
)

func (s *StoreTestSuite) TestFindByAddress_CaseInsensitive() {
	c, err := s.store.Contacts().FindByAddress(s.ctx, "  MARIA@Example.com ")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.contact.ID, c.ID)
}

func (s *StoreTestSuite) TestFindByAddress_Unknown() {
	_, err := s.store.Contacts().FindByAddress(s.ctx, "stranger@example.com")
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.store.Contacts().FindByAddress(s.ctx, "")
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *StoreTestSuite) TestReplaceForUnit() {
	// the existing contact anchors a thread and must survive removal
	s.newThread(models.ThreadStatusOpen, s.condo.CreatedAt)
	spare := &models.Contact{UnitID: s.unit.ID, Email: "old@example.com"}
	require.NoError(s.T(), s.db.Create(spare).Error)

	contacts, err := s.store.Contacts().ReplaceForUnit(s.ctx, s.unit.ID, []string{"NEW@example.com", "new@example.com", " "})
	require.NoError(s.T(), err)

	var emails []string
	for _, c := range contacts {
		emails = append(emails, c.Email)
	}
	assert.ElementsMatch(s.T(), []string{"maria@example.com", "new@example.com"}, emails)
}

func (s *StoreTestSuite) TestReplaceForUnit_KeepsIDsOfRetainedContacts() {
	contacts, err := s.store.Contacts().ReplaceForUnit(s.ctx, s.unit.ID, []string{"maria@example.com", "joao@example.com"})
	require.NoError(s.T(), err)
	require.Len(s.T(), contacts, 2)
	assert.Equal(s.T(), s.contact.ID, contacts[0].ID)
	assert.Equal(s.T(), "joao@example.com", contacts[1].Email)
}

func (s *StoreTestSuite) TestGetOrCreate() {
	c, err := s.store.Contacts().GetOrCreate(s.ctx, s.unit.ID, "Maria@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.contact.ID, c.ID)

	created, err := s.store.Contacts().GetOrCreate(s.ctx, s.unit.ID, "Sindico@Aurora.com")
	require.NoError(s.T(), err)
	assert.NotEqual(s.T(), s.contact.ID, created.ID)
	assert.Equal(s.T(), "sindico@aurora.com", created.Email)

	_, err = s.store.Contacts().GetOrCreate(s.ctx, s.unit.ID, "")
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
}
