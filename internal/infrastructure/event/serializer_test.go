package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/ledger"
	"github.com/schoolledger/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPaymentAppliedEvent(schoolID uuid.UUID) *ledger.PaymentAppliedEvent {
	paymentID := uuid.New()
	actor := shared.UserActor(uuid.New())
	return &ledger.PaymentAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(ledger.EventTypePaymentApplied, ledger.AggregateTypePayment, paymentID, schoolID, actor, time.Now().UTC().Truncate(time.Second)),
		PaymentID:       paymentID,
		FeeRecordID:     uuid.New(),
		StudentID:       uuid.New(),
		ReceiptNumber:   "RCPT-2024-0001",
		Method:          ledger.PaymentMethodCash,
		Amount:          decimal.RequireFromString("150.50"),
		FeeStatus:       ledger.FeeStatusPending,
	}
}

func TestEventSerializer_Register(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})

	assert.True(t, serializer.IsRegistered(ledger.EventTypePaymentApplied))
	assert.False(t, serializer.IsRegistered("UnknownEvent"))
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	serializer := NewEventSerializer()

	serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})
	serializer.Register(ledger.EventTypePaymentCancelled, &ledger.PaymentCancelledEvent{})

	types := serializer.RegisteredTypes()
	assert.Len(t, types, 2)
	assert.Contains(t, types, ledger.EventTypePaymentApplied)
	assert.Contains(t, types, ledger.EventTypePaymentCancelled)
}

func TestRegisterLedgerEvents(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	for _, eventType := range LedgerEventTypes() {
		assert.True(t, serializer.IsRegistered(eventType), eventType)
	}
	assert.Len(t, serializer.RegisteredTypes(), len(LedgerEventTypes()))
}

func TestEventSerializer_RegisteredTypesSorted(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	types := serializer.RegisteredTypes()
	assert.IsIncreasing(t, types)
}

func TestEventSerializer_RegisterConflict(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})

	assert.NotPanics(t, func() {
		serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})
	})
	assert.Panics(t, func() {
		serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentCancelledEvent{})
	})
}

func TestEventSerializer_Serialize_RejectsUnregisteredType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Serialize(newPaymentAppliedEvent(uuid.New()))

	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestEventSerializer_Deserialize_ChecksPayload(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)
	data, err := serializer.Serialize(newPaymentAppliedEvent(uuid.New()))
	require.NoError(t, err)

	t.Run("stored under another type", func(t *testing.T) {
		_, err := serializer.Deserialize(ledger.EventTypePaymentCancelled, data)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not match")
	})

	t.Run("payload without a school", func(t *testing.T) {
		orphan := newPaymentAppliedEvent(uuid.Nil)
		raw, err := serializer.Serialize(orphan)
		require.NoError(t, err)

		_, err = serializer.Deserialize(ledger.EventTypePaymentApplied, raw)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "has no school")
	})
}

func TestEventSerializer_Serialize(t *testing.T) {
	serializer := NewEventSerializer()
	serializer.Register(ledger.EventTypePaymentApplied, &ledger.PaymentAppliedEvent{})
	event := newPaymentAppliedEvent(uuid.New())

	data, err := serializer.Serialize(event)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"receipt_number":"RCPT-2024-0001"`)
	assert.Contains(t, string(data), `"amount":"150.5"`)
	assert.Contains(t, string(data), `"school_id":"`+event.SchoolID().String()+`"`)
}

func TestEventSerializer_Deserialize_UnknownType(t *testing.T) {
	serializer := NewEventSerializer()

	_, err := serializer.Deserialize("UnknownEvent", []byte(`{}`))

	assert.ErrorIs(t, err, ErrUnknownEventType)
}

func TestEventSerializer_Deserialize_InvalidJSON(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	_, err := serializer.Deserialize(ledger.EventTypePaymentApplied, []byte(`invalid json`))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal")
}

func TestEventSerializer_RoundTrip_PreservesAllFields(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	schoolID := uuid.New()
	original := newPaymentAppliedEvent(schoolID)

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize(ledger.EventTypePaymentApplied, data)
	require.NoError(t, err)

	event, ok := deserialized.(*ledger.PaymentAppliedEvent)
	require.True(t, ok)
	assert.Equal(t, original.EventID(), event.EventID())
	assert.Equal(t, original.EventType(), event.EventType())
	assert.Equal(t, original.AggregateID(), event.AggregateID())
	assert.Equal(t, original.AggregateType(), event.AggregateType())
	assert.Equal(t, schoolID, event.SchoolID())
	assert.Equal(t, original.Actor(), event.Actor())
	assert.True(t, original.OccurredAt().Equal(event.OccurredAt()))
	assert.Equal(t, original.ReceiptNumber, event.ReceiptNumber)
	assert.True(t, original.Amount.Equal(event.Amount))
}

func TestEventSerializer_RoundTrip_PromotionEvent(t *testing.T) {
	serializer := NewEventSerializer()
	RegisterLedgerEvents(serializer)

	promotion := &ledger.StudentPromotion{
		StudentID:          uuid.New(),
		FromClassID:        uuid.New(),
		ToClassID:          uuid.New(),
		FromAcademicYearID: uuid.New(),
		ToAcademicYearID:   uuid.New(),
		Status:             ledger.PromotionStatusFailed,
		FailureReason:      "student record locked",
	}
	promotion.ID = uuid.New()
	promotion.SchoolID = uuid.New()
	original := ledger.NewPromotionFailedEvent(promotion, shared.SystemActor, time.Now())

	data, err := serializer.Serialize(original)
	require.NoError(t, err)

	deserialized, err := serializer.Deserialize(ledger.EventTypePromotionFailed, data)
	require.NoError(t, err)

	event, ok := deserialized.(*ledger.PromotionFailedEvent)
	require.True(t, ok)
	assert.Equal(t, ledger.EventTypePromotionFailed, event.EventType())
	assert.Equal(t, promotion.SchoolID, event.SchoolID())
	assert.Equal(t, "student record locked", event.Reason)
	assert.True(t, event.Actor().IsSystem())
}
