package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vsinha/requisition/pkg/infrastructure/logging"
	"go.uber.org/multierr"
)

type subscriber struct {
	id      Subscription
	handler Handler
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu       sync.RWMutex
	streams  map[uuid.UUID][]Event
	log      []Event
	handlers map[string][]subscriber
	lastID   Subscription
	logger   logging.Logger
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(logger logging.Logger) *MemoryStore {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MemoryStore{
		streams:  make(map[uuid.UUID][]Event),
		handlers: make(map[string][]subscriber),
		logger:   logger.With(logging.String("component", "event-store")),
	}
}

// Publish sequences and stores the event, then hands it to every subscribed
// handler. Handler failures are combined into the returned error; the event
// stays stored either way.
func (s *MemoryStore) Publish(ctx context.Context, event Event) error {
	if event.RequisitionID == uuid.Nil {
		return fmt.Errorf("event %s has no requisition id", event.Type)
	}

	s.mu.Lock()
	event.Sequence = len(s.streams[event.RequisitionID]) + 1
	s.streams[event.RequisitionID] = append(s.streams[event.RequisitionID], event)
	s.log = append(s.log, event)
	subscribed := append([]subscriber(nil), s.handlers[event.Type]...)
	s.mu.Unlock()

	var errs error
	for _, sub := range subscribed {
		h := sub.handler
		if !h.Handles(event.Type) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			s.logger.Error("event handler failed",
				logging.String("event_type", event.Type),
				logging.ID("requisition_id", event.RequisitionID),
				logging.Int("sequence", event.Sequence),
				logging.Err(err))
			errs = multierr.Append(errs, fmt.Errorf("failed to handle %s: %w", event.Type, err))
		}
	}
	return errs
}

// History returns the requisition's events from the given sequence on
func (s *MemoryStore) History(requisitionID uuid.UUID, fromSequence int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[requisitionID]
	if fromSequence < 1 {
		fromSequence = 1
	}
	if fromSequence > len(stream) {
		return nil
	}
	return append([]Event(nil), stream[fromSequence-1:]...)
}

// Since returns every event after the first position events, in publish order
func (s *MemoryStore) Since(position int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if position < 0 {
		position = 0
	}
	if position >= len(s.log) {
		return nil
	}
	return append([]Event(nil), s.log[position:]...)
}

// Subscribe registers the handler for the given event types. The returned
// subscription cancels every registration made by this call.
func (s *MemoryStore) Subscribe(handler Handler, eventTypes ...string) (Subscription, error) {
	if handler == nil {
		return 0, fmt.Errorf("cannot subscribe a nil handler")
	}
	if len(eventTypes) == 0 {
		return 0, fmt.Errorf("subscribe needs at least one event type")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	for _, eventType := range eventTypes {
		s.handlers[eventType] = append(s.handlers[eventType], subscriber{id: s.lastID, handler: handler})
	}
	return s.lastID, nil
}

func (s *MemoryStore) Unsubscribe(subscription Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for eventType, subscribed := range s.handlers {
		kept := make([]subscriber, 0, len(subscribed))
		for _, sub := range subscribed {
			if sub.id != subscription {
				kept = append(kept, sub)
			}
		}
		s.handlers[eventType] = kept
	}
}
