package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	schoolID := uuid.New()
	at := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	ev := &testEvent{BaseDomainEvent: NewBaseDomainEvent("FeeRecordCreated", "FeeRecord", uuid.New(), schoolID, SystemActor, at)}

	entry := NewOutboxEntry(ev, []byte(`{}`), at)

	assert.Equal(t, schoolID, entry.SchoolID)
	assert.Equal(t, ev.EventID(), entry.EventID)
	assert.Equal(t, "FeeRecordCreated", entry.EventType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
	assert.Equal(t, at, entry.CreatedAt)
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	t.Run("resets dead letter entry for retry", func(t *testing.T) {
		at := time.Now()
		entry := &OutboxEntry{
			ID:         uuid.New(),
			Status:     OutboxStatusDead,
			RetryCount: 5,
			MaxRetries: 5,
			LastError:  "some error",
		}

		require.NoError(t, entry.ResetForRetry(at))
		assert.Equal(t, OutboxStatusPending, entry.Status)
		assert.Equal(t, 0, entry.RetryCount)
		assert.Empty(t, entry.LastError)
		assert.Nil(t, entry.NextRetryAt)
		assert.Equal(t, at, entry.UpdatedAt)
	})

	t.Run("fails for non-dead entry", func(t *testing.T) {
		for _, status := range []OutboxStatus{
			OutboxStatusPending,
			OutboxStatusProcessing,
			OutboxStatusSent,
			OutboxStatusFailed,
		} {
			entry := &OutboxEntry{ID: uuid.New(), Status: status}
			err := entry.ResetForRetry(time.Now())
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "can only retry dead letter entries")
		}
	})
}

func TestOutboxEntry_MarkProcessing(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusSent}
	assert.Error(t, entry.MarkProcessing(time.Now()))

	entry.Status = OutboxStatusFailed
	assert.NoError(t, entry.MarkProcessing(time.Now()))
	assert.Equal(t, OutboxStatusProcessing, entry.Status)
}

func TestOutboxEntry_MarkFailed_MovesToDeadAfterMaxRetries(t *testing.T) {
	entry := &OutboxEntry{
		ID:         uuid.New(),
		Status:     OutboxStatusProcessing,
		RetryCount: 4,
		MaxRetries: 5,
	}

	entry.MarkFailed("final error", time.Now())

	assert.Equal(t, OutboxStatusDead, entry.Status)
	assert.Equal(t, 5, entry.RetryCount)
	assert.Equal(t, "final error", entry.LastError)
	assert.Nil(t, entry.NextRetryAt)
	assert.True(t, entry.IsDead())
}

func TestOutboxEntry_MarkFailed_ExponentialBackoff(t *testing.T) {
	at := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	entry := &OutboxEntry{ID: uuid.New(), Status: OutboxStatusProcessing, MaxRetries: 5}

	entry.MarkFailed("error 1", at)
	assert.Equal(t, OutboxStatusFailed, entry.Status)
	assert.Equal(t, at.Add(time.Second), *entry.NextRetryAt)

	entry.MarkFailed("error 2", at)
	assert.Equal(t, at.Add(2*time.Second), *entry.NextRetryAt)

	entry.MarkFailed("error 3", at)
	assert.Equal(t, at.Add(4*time.Second), *entry.NextRetryAt)
	assert.True(t, entry.CanRetry())
}

func TestRetryBackoff_Capped(t *testing.T) {
	assert.Equal(t, time.Second, RetryBackoff(0))
	assert.Equal(t, MaxBackoff, RetryBackoff(20))
	assert.Equal(t, MaxBackoff, RetryBackoff(80))
}
