package models

import "time"

// NotificationKindInfo is the kind used for inbound-reply notifications
const NotificationKindInfo = "info"

// Notification is a per-user inbox entry
type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Body      string    `json:"body"`
	Link      *string   `gorm:"size:500" json:"link,omitempty"`
	Read      bool      `gorm:"column:is_read;not null;default:false" json:"read"`
	Kind      string    `gorm:"size:30" json:"kind"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
