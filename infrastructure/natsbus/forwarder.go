package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"goldenticket/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Publisher is satisfied by *Client
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, data []byte) error
}

// Envelope wraps a domain event on the wire
type Envelope struct {
	ID         string           `json:"id"`
	Type       events.EventType `json:"type"`
	OccurredAt time.Time        `json:"occurredAt"`
	Payload    events.Event     `json:"payload"`
}

// Forwarder relays committed domain events to NATS
type Forwarder struct {
	publisher Publisher
	newID     func() string
	now       func() time.Time
}

// NewForwarder creates a new forwarder
func NewForwarder(publisher Publisher) *Forwarder {
	return &Forwarder{
		publisher: publisher,
		newID:     func() string { return uuid.NewString() },
		now:       time.Now,
	}
}

// Subscribe registers the forwarder for every event type it relays
func (f *Forwarder) Subscribe(bus *events.Bus) {
	bus.Subscribe(events.EventTypeTicketIssued, f.handle)
	bus.Subscribe(events.EventTypeDrawSettled, f.handle)
}

// Subject returns the subject an event type is published on
func Subject(eventType events.EventType) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, eventType)
}

func (f *Forwarder) handle(ctx context.Context, event events.Event) {
	envelope := Envelope{
		ID:         f.newID(),
		Type:       event.Type(),
		OccurredAt: f.now().UTC(),
		Payload:    event,
	}

	logger := log.WithFields(log.Fields{
		"eventType": event.Type(),
		"messageID": envelope.ID,
	})

	data, err := json.Marshal(envelope)
	if err != nil {
		logger.WithError(err).Error("Failed to marshal event envelope")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := f.publisher.Publish(ctx, Subject(event.Type()), envelope.ID, data); err != nil {
		logger.WithError(err).Error("Failed to forward event to NATS")
		return
	}
	logger.Debug("Forwarded event to NATS")
}
