package event

import (
	"context"
	"testing"

	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockHandler implements EventHandler for testing
type mockHandler struct {
	eventTypes []string
}

func newMockHandler(eventTypes ...string) *mockHandler {
	return &mockHandler{eventTypes: eventTypes}
}

func (h *mockHandler) Handle(context.Context, shared.DomainEvent) error { return nil }

func (h *mockHandler) EventTypes() []string { return h.eventTypes }

func TestHandlerRegistry_TypedAndWildcard(t *testing.T) {
	registry := NewHandlerRegistry()
	audit := newMockHandler()
	metrics := newMockHandler(ledger.EventTypePaymentApplied)

	registry.Register(audit)
	registry.Register(metrics, ledger.EventTypePaymentApplied, ledger.EventTypePaymentCancelled)

	handlers := registry.GetHandlers(ledger.EventTypePaymentApplied)
	assert.Equal(t, []shared.EventHandler{metrics, audit}, handlers, "typed handlers come first")
	assert.Equal(t, []shared.EventHandler{audit}, registry.GetHandlers(ledger.EventTypeBalanceCleared))
	assert.Equal(t, []string{ledger.EventTypePaymentApplied, ledger.EventTypePaymentCancelled}, registry.SubscribedTypes())
}

func TestHandlerRegistry_RegisterTwiceDeliversOnce(t *testing.T) {
	registry := NewHandlerRegistry()
	handler := newMockHandler()

	registry.Register(handler, ledger.EventTypeFeeStatusChanged)
	registry.Register(handler, ledger.EventTypeFeeStatusChanged)

	assert.Len(t, registry.GetHandlers(ledger.EventTypeFeeStatusChanged), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	first := newMockHandler()
	second := newMockHandler()
	wildcard := newMockHandler()

	registry.Register(first, ledger.EventTypeConcessionApproved)
	registry.Register(second, ledger.EventTypeConcessionApproved)
	registry.Register(wildcard)

	registry.Unregister(first)
	registry.Unregister(wildcard)

	assert.Equal(t, []shared.EventHandler{second}, registry.GetHandlers(ledger.EventTypeConcessionApproved))

	registry.Unregister(second)
	assert.Empty(t, registry.GetHandlers(ledger.EventTypeConcessionApproved))
	assert.Empty(t, registry.SubscribedTypes())
}

func TestHandlerRegistry_ReportsUnknownTypes(t *testing.T) {
	registry := NewHandlerRegistry(LedgerEventTypes()...)
	handler := newMockHandler()

	unknown := registry.Register(handler, ledger.EventTypePaymentApplied, "PaymentRefunded")

	assert.Equal(t, []string{"PaymentRefunded"}, unknown)
	assert.Len(t, registry.GetHandlers("PaymentRefunded"), 1, "still subscribed")
	assert.Nil(t, NewHandlerRegistry().Register(handler, "PaymentRefunded"), "no known set accepts anything")
}

func TestInMemoryEventBus_WarnsOnUnknownSubscription(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	bus := NewInMemoryEventBus(zap.New(core), WithKnownEventTypes(LedgerEventTypes()...))

	bus.Subscribe(newMockHandler(ledger.EventTypeFeeAmountChanged))
	assert.Zero(t, recorded.Len())

	bus.Subscribe(newMockHandler("FeeAmountChange"))
	logs := recorded.FilterMessage("handler subscribed to unknown event types").All()
	if assert.Len(t, logs, 1) {
		assert.Equal(t, []any{"FeeAmountChange"}, logs[0].ContextMap()["event_types"])
	}
	assert.Equal(t, []string{"FeeAmountChange", ledger.EventTypeFeeAmountChanged}, bus.SubscribedTypes())
}
