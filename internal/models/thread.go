package models

import (
	"fmt"
	"time"

	apperrors "github.com/welldanyogia/svp-backend/internal/errors"
)

// ThreadStatus is the lifecycle state of a Thread (comunicação)
type ThreadStatus string

const (
	ThreadStatusOpen     ThreadStatus = "aberto"
	ThreadStatusAnswered ThreadStatus = "respondido"
	ThreadStatusRead     ThreadStatus = "lida"
	ThreadStatusClosed   ThreadStatus = "fechado"
)

// ThreadEvent is something that happens to a thread and may move its status
type ThreadEvent string

const (
	ThreadEventInbound       ThreadEvent = "inbound"
	ThreadEventOperatorRead  ThreadEvent = "operator_read"
	ThreadEventOperatorReply ThreadEvent = "operator_reply"
	ThreadEventClose         ThreadEvent = "close"
)

// Transition returns the status reached from s on ev.
//
// Closing is always allowed. A closed thread accepts no other event, and an
// operator read only acknowledges threads that are currently answered.
func (s ThreadStatus) Transition(ev ThreadEvent) (ThreadStatus, error) {
	if ev == ThreadEventClose {
		return ThreadStatusClosed, nil
	}
	if s == ThreadStatusClosed {
		return s, fmt.Errorf("%w: %s on closed thread", apperrors.ErrInvalidTransition, ev)
	}

	switch ev {
	case ThreadEventInbound:
		return ThreadStatusAnswered, nil
	case ThreadEventOperatorRead:
		if s == ThreadStatusAnswered {
			return ThreadStatusRead, nil
		}
		return s, nil
	case ThreadEventOperatorReply:
		return ThreadStatusOpen, nil
	default:
		return s, fmt.Errorf("%w: unknown event %q", apperrors.ErrInvalidTransition, ev)
	}
}

// Thread is a conversation anchored to exactly one Contact
type Thread struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ContactID      uint         `gorm:"not null;index:idx_threads_contact_status,priority:1" json:"contact_id"`
	InitialSubject string       `gorm:"size:500" json:"initial_subject"`
	Status         ThreadStatus `gorm:"not null;size:20;index:idx_threads_contact_status,priority:2" json:"status"`
	CreatedAt      time.Time    `gorm:"autoCreateTime;index" json:"created_at"`

	Messages []Message `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TableName returns the table name for Thread
func (Thread) TableName() string {
	return "threads"
}

// ThreadContext is a thread joined with the unit and condominium that own its contact
type ThreadContext struct {
	ThreadID        uint         `json:"id"`
	InitialSubject  string       `json:"initial_subject"`
	Status          ThreadStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
	ContactID       uint         `json:"contact_id"`
	ContactEmail    string       `json:"contact_email"`
	UnitID          uint         `json:"unit_id"`
	UnitNumber      string       `json:"unit_number"`
	UnitBlock       string       `json:"unit_block,omitempty"`
	OwnerName       string       `json:"owner_name,omitempty"`
	CondominiumID   uint         `json:"condominium_id"`
	CondominiumName string       `json:"condominium_name"`
	Portfolio       *string      `json:"-"`
}

// ThreadDetail is a thread with its ordered messages for the read path
type ThreadDetail struct {
	Thread   ThreadContext `json:"thread"`
	Messages []Message     `json:"messages"`
}
