package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
)

// ErrUnknownEventType is returned for event types the serializer has no Go type for
var ErrUnknownEventType = errors.New("unknown event type")

// EventSerializer converts ledger events to and from their outbox payload.
// Only registered event types are accepted in either direction, so every
// stored entry can be decoded by the outbox processor.
type EventSerializer struct {
	mu       sync.RWMutex
	registry map[string]reflect.Type // eventType -> Go type
}

// NewEventSerializer creates a new event serializer
func NewEventSerializer() *EventSerializer {
	return &EventSerializer{
		registry: make(map[string]reflect.Type),
	}
}

// Register binds an event type name to the Go type of eventInstance.
// Registering a second Go type under the same name panics.
func (s *EventSerializer) Register(eventType string, eventInstance shared.DomainEvent) {
	t := reflect.TypeOf(eventInstance)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.registry[eventType]; ok && existing != t {
		panic(fmt.Sprintf("event type %s already registered as %s", eventType, existing))
	}
	s.registry[eventType] = t
}

// Serialize encodes a registered event
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	if !s.IsRegistered(event.EventType()) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, event.EventType())
	}
	return json.Marshal(event)
}

// Deserialize decodes an outbox payload. The payload must carry the same event
// type it was stored under and name its school.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.registry[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	eventPtr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, eventPtr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s event: %w", eventType, err)
	}

	event, ok := eventPtr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("registered type for %s does not implement DomainEvent", eventType)
	}
	if event.EventType() != eventType {
		return nil, fmt.Errorf("payload event type %q does not match %s", event.EventType(), eventType)
	}
	if event.SchoolID() == uuid.Nil {
		return nil, fmt.Errorf("%s event %s has no school", eventType, event.EventID())
	}
	return event, nil
}

// IsRegistered checks if an event type is registered
func (s *EventSerializer) IsRegistered(eventType string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.registry[eventType]
	return ok
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, 0, len(s.registry))
	for t := range s.registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
