package models

import (
	"time"
)

// MessageDirection tells whether a message was sent by the agency or received from a contact
type MessageDirection string

const (
	DirectionSent     MessageDirection = "enviado"
	DirectionReceived MessageDirection = "recebido"
)

// Message is one e-mail inside a Thread. ExternalID is the transport Message-Id;
// it is unique when present and is the idempotency key for inbound deliveries.
type Message struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	ThreadID   uint             `gorm:"not null;index" json:"thread_id"`
	Sender     string           `gorm:"not null;size:255" json:"sender"`
	Recipient  string           `gorm:"size:255" json:"recipient"`
	BodyHTML   string           `json:"body_html"`
	Direction  MessageDirection `gorm:"not null;size:20;index" json:"direction"`
	ExternalID *string          `gorm:"size:255;uniqueIndex" json:"external_id,omitempty"`
	SentAt     time.Time        `gorm:"not null;index" json:"sent_at"`

	// Relationships
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// HasExternalID reports whether the transport assigned an id to the message
func (m *Message) HasExternalID() bool {
	return m.ExternalID != nil && *m.ExternalID != ""
}
