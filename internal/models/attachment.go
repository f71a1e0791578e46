package models

// Attachment is a file materialized from a message part
type Attachment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	MessageID    uint   `gorm:"not null;index" json:"message_id"`
	OriginalName string `gorm:"size:255" json:"original_name"`
	StoredName   string `gorm:"size:255;uniqueIndex" json:"stored_name"`
	Path         string `gorm:"size:500" json:"path"`
	SizeBytes    int64  `json:"size_bytes"`
	MimeType     string `gorm:"size:150" json:"mime_type"`
}

// TableName returns the table name for Attachment
func (Attachment) TableName() string {
	return "attachments"
}
