package models

import "time"

// DeliveryEventKind is the normalized provider lifecycle signal
type DeliveryEventKind string

const (
	EventProcessed DeliveryEventKind = "Processado"
	EventDelivered DeliveryEventKind = "Entregue"
	EventOpened    DeliveryEventKind = "Aberto"
	EventFailed    DeliveryEventKind = "Erro"
)

// DeliveryEvent is an append-only provider event. ExternalID mirrors
// Message.ExternalID but is not a foreign key: events may arrive before the
// message row exists, or for messages this service never stored.
type DeliveryEvent struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ExternalID string            `gorm:"size:255;index" json:"external_id"`
	Recipient  string            `gorm:"size:255" json:"recipient"`
	Kind       DeliveryEventKind `gorm:"size:50;index" json:"kind"`
	OccurredAt time.Time         `gorm:"not null" json:"occurred_at"`
	Payload    string            `json:"payload,omitempty"`
}

// TableName returns the table name for DeliveryEvent
func (DeliveryEvent) TableName() string {
	return "delivery_events"
}

// DeliveryStatus is the latest timestamp seen for each event kind of one sent message
type DeliveryStatus struct {
	Processed *time.Time `json:"processado"`
	Delivered *time.Time `json:"entregue"`
	Opened    *time.Time `json:"aberto"`
	Error     *string    `json:"erro"`
}

// DeliveryReportItem is one sent message with its delivery history summarized
type DeliveryReportItem struct {
	MessageID  uint           `json:"id"`
	Recipient  string         `json:"recipient"`
	Unit       string         `json:"unit"`
	Subject    string         `json:"subject"`
	SentAt     time.Time      `json:"sent_at"`
	ExternalID string         `json:"external_id,omitempty"`
	Status     DeliveryStatus `json:"status"`
}
