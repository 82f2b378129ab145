package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultOutboxPageSize is the page size of the dead letter list
const DefaultOutboxPageSize = 20

var errOutboxEntryNotFound = shared.NewDomainError("NOT_FOUND", "Outbox entry not found")

// OutboxEntryResponse is an outbox entry as shown to admins. The payload
// is left out, it may carry email addresses and reset tokens.
type OutboxEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"eventId"`
	EventType     string     `json:"eventType"`
	AggregateID   uuid.UUID  `json:"aggregateId"`
	AggregateType string     `json:"aggregateType"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retryCount"`
	MaxRetries    int        `json:"maxRetries"`
	LastError     string     `json:"lastError,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// OutboxStats counts outbox entries per status
type OutboxStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// OutboxPage is a page of outbox entries
type OutboxPage = shared.Paginated[OutboxEntryResponse]

// OutboxService lets admins inspect and replay background jobs that
// exhausted their retries
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new OutboxService
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{repo: repo, logger: logger}
}

// DeadLetters lists dead entries, newest first
func (s *OutboxService) DeadLetters(ctx context.Context, page, limit int) (*OutboxPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultOutboxPageSize
	}
	if limit > 100 {
		limit = 100
	}

	entries, total, err := s.repo.FindDead(ctx, page, limit)
	if err != nil {
		return nil, shared.WrapDomainError("INTERNAL_ERROR", "Failed to retrieve dead letter entries", err)
	}

	items := make([]OutboxEntryResponse, len(entries))
	for i, entry := range entries {
		items[i] = toOutboxEntryResponse(entry)
	}
	result := shared.NewPaginated(items, total, page, limit)
	return &result, nil
}

// Entry returns a single outbox entry
func (s *OutboxService) Entry(ctx context.Context, id uuid.UUID) (*OutboxEntryResponse, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toOutboxEntryResponse(entry)
	return &resp, nil
}

// Retry puts a dead entry back in the pending queue
func (s *OutboxService) Retry(ctx context.Context, id uuid.UUID) (*OutboxEntryResponse, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Only dead entries can be retried")
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	resp := toOutboxEntryResponse(entry)
	return &resp, nil
}

// RetryAll resets every dead entry and returns how many were requeued
func (s *OutboxService) RetryAll(ctx context.Context) (int64, error) {
	var count int64
	for {
		// Requeued entries leave the dead set, so the first page is always the next batch
		entries, _, err := s.repo.FindDead(ctx, 1, 100)
		if err != nil {
			return count, err
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("Failed to requeue outbox entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			progressed = true
			count++
		}
		if !progressed || len(entries) < 100 {
			break
		}
	}

	s.logger.Info("Retried dead letter entries", zap.Int64("count", count))
	return count, nil
}

// Stats counts entries per status
func (s *OutboxService) Stats(ctx context.Context) (*OutboxStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return &OutboxStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil || entry == nil {
		return nil, errOutboxEntryNotFound
	}
	return entry, nil
}

func toOutboxEntryResponse(entry *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            entry.ID,
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
