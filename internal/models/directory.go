package models

import "time"

// Condominium is a managed building; Portfolio (carteira) scopes which restricted
// users may see its units' communication.
type Condominium struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	Portfolio    *string   `gorm:"size:100;index" json:"portfolio,omitempty"`
	ManagerEmail string    `gorm:"size:500" json:"manager_email,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Condominium
func (Condominium) TableName() string {
	return "condominiums"
}

// Unit is a residential unit inside a condominium
type Unit struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	CondominiumID uint   `gorm:"not null;index" json:"condominium_id"`
	Number        string `gorm:"not null;size:50" json:"number"`
	Block         string `gorm:"size:50" json:"block,omitempty"`
	OwnerName     string `gorm:"size:255" json:"owner_name,omitempty"`

	Condominium *Condominium `gorm:"foreignKey:CondominiumID;constraint:OnDelete:CASCADE" json:"condominium,omitempty"`
	Contacts    []Contact    `gorm:"foreignKey:UnitID" json:"-"`
}

// TableName returns the table name for Unit
func (Unit) TableName() string {
	return "units"
}

// Contact is an e-mail address registered for a unit. Inbound mail is only
// accepted from addresses present here.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UnitID    uint      `gorm:"not null;index" json:"unit_id"`
	Email     string    `gorm:"not null;size:255;index" json:"email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}
