package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/svp-backend/internal/mailer"
	"github.com/welldanyogia/svp-backend/internal/services"
)

// MockSender implements mailer.Sender
type MockSender struct {
	mock.Mock
}

// Send delivers an outgoing message
func (m *MockSender) Send(ctx context.Context, msg *mailer.Outgoing) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockInboundReceiver settles inbound deliveries
type MockInboundReceiver struct {
	mock.Mock
}

// Receive settles one inbound delivery
func (m *MockInboundReceiver) Receive(ctx context.Context, mail *services.InboundMail) (*services.ReceiveResult, error) {
	args := m.Called(ctx, mail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ReceiveResult), args.Error(1)
}

// MockEventRecorder records delivery events
type MockEventRecorder struct {
	mock.Mock
}

// Record stores one delivery event
func (m *MockEventRecorder) Record(ctx context.Context, externalID, recipient, rawKind string, payload []byte) {
	m.Called(ctx, externalID, recipient, rawKind, payload)
}

// Publication is one event sent through a MockPublisher
type Publication struct {
	Channel string
	Event   string
	Payload any
}

// MockPublisher implements services.Publisher and records every publication
type MockPublisher struct {
	mu           sync.Mutex
	publications []Publication
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records an event
func (m *MockPublisher) Publish(channel, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publications = append(m.publications, Publication{Channel: channel, Event: event, Payload: payload})
}

// On returns the events published on channel
func (m *MockPublisher) On(channel string) []Publication {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Publication
	for _, p := range m.publications {
		if p.Channel == channel {
			out = append(out, p)
		}
	}
	return out
}

// Clear drops recorded publications
func (m *MockPublisher) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publications = nil
}
