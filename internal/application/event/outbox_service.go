// Package event exposes operator actions over the ledger event outbox.
package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OutboxService inspects outbox delivery and re-queues dead letters
type OutboxService struct {
	repo   shared.OutboxRepository
	clock  shared.Clock
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service. A nil clock uses the system clock.
func NewOutboxService(repo shared.OutboxRepository, clock shared.Clock, logger *zap.Logger) *OutboxService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// OutboxEntryDTO is one outbox row without its payload
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	SchoolID      uuid.UUID  `json:"school_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxListResult is one page of dead letters
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO counts entries per delivery status
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// RetryAllResult reports how many dead letters were re-queued
type RetryAllResult struct {
	Retried int64 `json:"retried"`
}

// ListDeadLetters returns a page of entries that exhausted their retries.
// Page defaults to 1; page size defaults to 20 and is capped at 100.
func (s *OutboxService) ListDeadLetters(ctx context.Context, page, pageSize int) (*OutboxListResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("find dead letters: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}

	return &OutboxListResult{
		Entries:    dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// GetEntry returns a single outbox entry
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadLetter moves one dead letter back to pending so the processor picks it up again
func (s *OutboxService) RetryDeadLetter(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.findEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(s.clock.Now()); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", err.Error()).
			WithDetail("outbox_entry_id", id.String()).
			WithDetail("status", string(entry.Status))
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update outbox entry %s: %w", id, err)
	}

	s.logger.Info("Dead letter re-queued",
		zap.String("outbox_entry_id", id.String()),
		zap.String("school_id", entry.SchoolID.String()),
		zap.String("event_type", entry.EventType),
	)

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadLetters re-queues every dead letter. Entries that fail to update
// are logged and skipped.
func (s *OutboxService) RetryAllDeadLetters(ctx context.Context) (*RetryAllResult, error) {
	var retried int64
	for {
		// Re-queued entries leave the dead set, so page 1 always holds the next batch.
		entries, _, err := s.repo.FindDead(ctx, 1, maxPageSize)
		if err != nil {
			return &RetryAllResult{Retried: retried}, fmt.Errorf("find dead letters: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		now := s.clock.Now()
		for _, entry := range entries {
			if err := entry.ResetForRetry(now); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to re-queue dead letter",
					zap.String("outbox_entry_id", entry.ID.String()),
					zap.Error(err),
				)
				continue
			}
			retried++
			progressed = true
		}

		if !progressed || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("Dead letters re-queued", zap.Int64("count", retried))
	return &RetryAllResult{Retried: retried}, nil
}

// Stats counts outbox entries per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) findEntry(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, shared.ErrNotFound) || (err == nil && entry == nil) {
		return nil, shared.NewDomainErrorOfKind(shared.KindNotFound, shared.ErrNotFound.Code, "Outbox entry not found").
			WithDetail("outbox_entry_id", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("find outbox entry %s: %w", id, err)
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		SchoolID:      entry.SchoolID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
