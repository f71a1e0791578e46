// Package fixtures builds directory data and raw messages shared by the
// integration and e2e suites.
package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/welldanyogia/svp-backend/internal/models"
	"gorm.io/gorm"
)

// Portfolios used by the seeded directory
const (
	PortfolioA = "A"
	PortfolioB = "B"
)

// Directory is a small seeded world: two condominiums in different
// portfolios, one unit and contact each, and one user per role of interest
type Directory struct {
	CondoA, CondoB     models.Condominium
	UnitA, UnitB       models.Unit
	ContactA, ContactB models.Contact

	CEO, CollabA, CollabB models.User
}

// SeedDirectory inserts a Directory into db
func SeedDirectory(db *gorm.DB) (*Directory, error) {
	a, b := PortfolioA, PortfolioB
	d := &Directory{
		CondoA:  models.Condominium{Name: "Residencial Aurora", Portfolio: &a, ManagerEmail: "sindico@aurora.com"},
		CondoB:  models.Condominium{Name: "Edifício Boreal", Portfolio: &b, ManagerEmail: "sindico@boreal.com"},
		CEO:     models.User{Name: "Ana", Email: "ana@svp.com", Role: models.RoleCEO},
		CollabA: models.User{Name: "Bruno", Email: "bruno@svp.com", Role: models.RoleCollaborator, Portfolio: &a},
		CollabB: models.User{Name: "Carla", Email: "carla@svp.com", Role: models.RoleCollaborator, Portfolio: &b},
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, v := range []any{&d.CondoA, &d.CondoB, &d.CEO, &d.CollabA, &d.CollabB} {
			if err := tx.Create(v).Error; err != nil {
				return err
			}
		}
		d.UnitA = models.Unit{CondominiumID: d.CondoA.ID, Number: "101", OwnerName: "Maria Souza"}
		d.UnitB = models.Unit{CondominiumID: d.CondoB.ID, Number: "202", OwnerName: "João Lima"}
		for _, v := range []*models.Unit{&d.UnitA, &d.UnitB} {
			if err := tx.Create(v).Error; err != nil {
				return err
			}
		}
		d.ContactA = models.Contact{UnitID: d.UnitA.ID, Email: "maria@example.com"}
		d.ContactB = models.Contact{UnitID: d.UnitB.ID, Email: "joao@example.com"}
		for _, v := range []*models.Contact{&d.ContactA, &d.ContactB} {
			if err := tx.Create(v).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed directory: %w", err)
	}
	return d, nil
}

// ThreadBuilder builds Thread values
type ThreadBuilder struct {
	thread models.Thread
}

// NewThreadBuilder creates a ThreadBuilder with an open thread
func NewThreadBuilder() *ThreadBuilder {
	return &ThreadBuilder{thread: models.Thread{
		InitialSubject: "Cobrança condominial",
		Status:         models.ThreadStatusOpen,
	}}
}

// WithContact sets the contact
func (b *ThreadBuilder) WithContact(id uint) *ThreadBuilder {
	b.thread.ContactID = id
	return b
}

// WithSubject sets the initial subject
func (b *ThreadBuilder) WithSubject(subject string) *ThreadBuilder {
	b.thread.InitialSubject = subject
	return b
}

// WithStatus sets the status
func (b *ThreadBuilder) WithStatus(status models.ThreadStatus) *ThreadBuilder {
	b.thread.Status = status
	return b
}

// Build returns the built thread
func (b *ThreadBuilder) Build() *models.Thread {
	t := b.thread
	return &t
}

// MessageBuilder builds Message values
type MessageBuilder struct {
	message models.Message
}

// NewMessageBuilder creates a MessageBuilder with a sent message
func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{message: models.Message{
		Sender:    "cobranca@svp.com",
		Recipient: "maria@example.com",
		BodyHTML:  "<p>Segue boleto</p>",
		Direction: models.DirectionSent,
		SentAt:    time.Now(),
	}}
}

// WithThread sets the thread
func (b *MessageBuilder) WithThread(id uint) *MessageBuilder {
	b.message.ThreadID = id
	return b
}

// WithExternalID sets the transport Message-Id
func (b *MessageBuilder) WithExternalID(id string) *MessageBuilder {
	b.message.ExternalID = &id
	return b
}

// WithDirection sets the direction
func (b *MessageBuilder) WithDirection(d models.MessageDirection) *MessageBuilder {
	b.message.Direction = d
	return b
}

// WithParties sets sender and recipient
func (b *MessageBuilder) WithParties(sender, recipient string) *MessageBuilder {
	b.message.Sender = sender
	b.message.Recipient = recipient
	return b
}

// Build returns the built message
func (b *MessageBuilder) Build() *models.Message {
	m := b.message
	return &m
}

// RawMessage describes an RFC 5322 message for SMTP tests
type RawMessage struct {
	From       string
	To         string
	Subject    string
	MessageID  string
	InReplyTo  string
	References []string
	HTML       string
}

// Bytes renders m as a single-part HTML message with CRLF line endings
func (m RawMessage) Bytes() []byte {
	var b strings.Builder
	header := func(name, value string) {
		if value != "" {
			b.WriteString(name + ": " + value + "\r\n")
		}
	}
	header("From", m.From)
	header("To", m.To)
	header("Subject", m.Subject)
	header("Message-Id", angle(m.MessageID))
	header("In-Reply-To", angle(m.InReplyTo))
	if len(m.References) > 0 {
		refs := make([]string, len(m.References))
		for i, r := range m.References {
			refs[i] = angle(r)
		}
		header("References", strings.Join(refs, " "))
	}
	header("Date", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(m.HTML + "\r\n")
	return []byte(b.String())
}

func angle(id string) string {
	if id == "" {
		return ""
	}
	return "<" + strings.Trim(id, "<>") + ">"
}
