package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is something that happened to one requisition. Sequence is the
// event's 1-based position in that requisition's stream and is assigned by
// the store on publish.
type Event struct {
	Type          string
	RequisitionID uuid.UUID
	Sequence      int
	OccurredAt    time.Time
	Payload       interface{}
}

// NewEvent builds an unsequenced event
func NewEvent(eventType string, requisitionID uuid.UUID, payload interface{}, at time.Time) Event {
	return Event{
		Type:          eventType,
		RequisitionID: requisitionID,
		OccurredAt:    at,
		Payload:       payload,
	}
}

// Handler reacts to published events. Handlers run synchronously in
// publish order and their errors are returned to the publisher.
type Handler interface {
	Handles(eventType string) bool
	Handle(ctx context.Context, event Event) error
}

// Publisher is the side of a store the application services need
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscription identifies one Subscribe call so it can be cancelled
type Subscription uint64

// Store keeps every published event per requisition and fans them out
type Store interface {
	Publisher
	History(requisitionID uuid.UUID, fromSequence int) []Event
	Since(position int) []Event
	Subscribe(handler Handler, eventTypes ...string) (Subscription, error)
	Unsubscribe(subscription Subscription)
}
