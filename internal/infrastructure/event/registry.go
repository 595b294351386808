package event

import (
	"slices"
	"sync"

	"github.com/schoolledger/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to subscribed handlers. When constructed
// with known types it reports subscriptions to types nothing publishes.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler // eventType -> handlers
	wildcard []shared.EventHandler            // handlers for all events
	known    map[string]struct{}
}

// NewHandlerRegistry creates a registry. An empty knownTypes accepts any type.
func NewHandlerRegistry(knownTypes ...string) *HandlerRegistry {
	r := &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
	}
	if len(knownTypes) > 0 {
		r.known = make(map[string]struct{}, len(knownTypes))
		for _, t := range knownTypes {
			r.known[t] = struct{}{}
		}
	}
	return r
}

// Register subscribes handler to the given event types, or to every event when
// none are given. It returns the types that are not known to the registry;
// the handler is still subscribed to them.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return nil
	}

	var unknown []string
	for _, eventType := range eventTypes {
		if r.known != nil {
			if _, ok := r.known[eventType]; !ok {
				unknown = append(unknown, eventType)
			}
		}
		if slices.Contains(r.handlers[eventType], handler) {
			continue
		}
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
	return unknown
}

// Unregister removes a handler from all event types
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for eventType, handlers := range r.handlers {
		r.handlers[eventType] = removeHandler(handlers, handler)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
}

// GetHandlers returns the handlers for an event type followed by the wildcard handlers
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeHandlers := r.handlers[eventType]
	result := make([]shared.EventHandler, 0, len(typeHandlers)+len(r.wildcard))
	result = append(result, typeHandlers...)
	result = append(result, r.wildcard...)
	return result
}

// SubscribedTypes returns the event types with at least one typed handler, sorted
func (r *HandlerRegistry) SubscribedTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func removeHandler(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	result := make([]shared.EventHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
