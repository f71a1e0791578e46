package models

import "time"

// Role is an internal user's profile
type Role string

const (
	RoleCEO           Role = "ceo"
	RoleSupervisor    Role = "supervisor"
	RoleAdministrator Role = "administrador"
	RoleCollaborator  Role = "colaborador"
)

// User is a back-office operator. Token issuance lives elsewhere; this service
// only reads users for entitlement and notification fan-out.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Role      Role      `gorm:"not null;size:30;index" json:"role"`
	Portfolio *string   `gorm:"size:100" json:"portfolio,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}
