package admin

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirdhand/marketplace/internal/domain/shared"
	"go.uber.org/zap"
)

// memOutbox is an in-memory shared.OutboxRepository
type memOutbox struct {
	entries map[uuid.UUID]*shared.OutboxEntry
}

func newMemOutbox() *memOutbox {
	return &memOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memOutbox) add(status shared.OutboxStatus) *shared.OutboxEntry {
	now := time.Now()
	entry := &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "SendVerificationEmail",
		AggregateID:   uuid.New(),
		AggregateType: "User",
		Status:        status,
		MaxRetries:    3,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if status == shared.OutboxStatusDead {
		entry.RetryCount = 3
		entry.LastError = "smtp: connection refused"
	}
	r.entries[entry.ID] = entry
	return entry
}

func (r *memOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memOutbox) FindPending(context.Context, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.Status == shared.OutboxStatusDead {
			dead = append(dead, e)
		}
	}
	sort.Slice(dead, func(i, j int) bool { return dead[i].ID.String() < dead[j].ID.String() })

	total := int64(len(dead))
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, total, nil
	}
	end := min(start+pageSize, len(dead))
	return dead[start:end], total, nil
}

func (r *memOutbox) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	return r.entries[id], nil
}

func (r *memOutbox) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *memOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.entries[entry.ID] = entry
	return nil
}

func (r *memOutbox) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *memOutbox) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func TestOutboxService_DeadLetters(t *testing.T) {
	repo := newMemOutbox()
	for range 5 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())

	page, err := svc.DeadLetters(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(5), page.Pagination.Total)
	for _, item := range page.Items {
		assert.Equal(t, "DEAD", item.Status)
		assert.Equal(t, "smtp: connection refused", item.LastError)
	}

	page, err = svc.DeadLetters(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
}

func TestOutboxService_Retry(t *testing.T) {
	repo := newMemOutbox()
	dead := repo.add(shared.OutboxStatusDead)
	pending := repo.add(shared.OutboxStatusPending)
	svc := NewOutboxService(repo, zap.NewNop())

	t.Run("dead entry is requeued", func(t *testing.T) {
		resp, err := svc.Retry(context.Background(), dead.ID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", resp.Status)
		assert.Zero(t, resp.RetryCount)
		assert.Empty(t, resp.LastError)
	})

	t.Run("live entry is rejected", func(t *testing.T) {
		_, err := svc.Retry(context.Background(), pending.ID)
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "INVALID_STATE", de.Code)
	})

	t.Run("unknown entry", func(t *testing.T) {
		_, err := svc.Retry(context.Background(), uuid.New())
		de, ok := shared.AsDomainError(err)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", de.Code)
	})
}

func TestOutboxService_RetryAll(t *testing.T) {
	repo := newMemOutbox()
	for range 3 {
		repo.add(shared.OutboxStatusDead)
	}
	repo.add(shared.OutboxStatusSent)
	svc := NewOutboxService(repo, zap.NewNop())

	n, err := svc.RetryAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Pending)
	assert.Equal(t, int64(1), stats.Sent)
	assert.Zero(t, stats.Dead)
	assert.Equal(t, int64(4), stats.Total)
}

func TestOutboxService_Entry(t *testing.T) {
	repo := newMemOutbox()
	entry := repo.add(shared.OutboxStatusFailed)
	svc := NewOutboxService(repo, zap.NewNop())

	resp, err := svc.Entry(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EventID, resp.EventID)
	assert.Equal(t, "FAILED", resp.Status)
}
