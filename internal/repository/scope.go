package repository

import (
	"github.com/welldanyogia/svp-backend/internal/access"
	"gorm.io/gorm"
)

// threadOwnerJoins links threads to the condominium that owns their contact
const threadOwnerJoins = "JOIN contacts ON contacts.id = threads.contact_id " +
	"JOIN units ON units.id = contacts.unit_id " +
	"JOIN condominiums ON condominiums.id = units.condominium_id"

// withScope restricts a query that already carries threadOwnerJoins to the
// condominiums visible in scope
func withScope(q *gorm.DB, scope access.Scope) *gorm.DB {
	if scope.Unrestricted() {
		return q
	}
	if scope.Empty() {
		return q.Where("1 = 0")
	}
	return q.Where("TRIM(condominiums.portfolio) = ?", scope.Portfolio())
}
