package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/hospital-api/internal/model"
	"github.com/meditrack/hospital-api/pkg/logger"
	"github.com/meditrack/hospital-api/pkg/metrics"
)

var workerMetrics = metrics.NewMetrics("worker_test")

type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(ctx)
}

type fakeOutboxRepo struct {
	mu     sync.Mutex
	events map[uuid.UUID]*model.OutboxEvent
	order  []uuid.UUID
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: make(map[uuid.UUID]*model.OutboxEvent)}
}

func (f *fakeOutboxRepo) Create(ctx context.Context, e *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	f.events[e.ID] = &cp
	f.order = append(f.order, e.ID)
	return nil
}

func (f *fakeOutboxRepo) GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.OutboxEvent
	now := time.Now()
	for _, id := range f.order {
		e := f.events[id]
		if e.Status != model.OutboxStatusPending {
			continue
		}
		if e.RetryAt != nil && e.RetryAt.After(now) {
			continue
		}
		cp := *e
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[id]
	if !ok {
		return errors.New("event not found")
	}
	e.Status = status
	e.ErrorMessage = errorMessage
	e.RetryAt = retryAt
	if retryAt != nil {
		e.RetryCount++
	}
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) get(id uuid.UUID) model.OutboxEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.events[id]
}

type published struct {
	channel string
}

type fakeBroker struct {
	mu        sync.Mutex
	published []published
	failures  int
}

func (f *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, published{channel: channel})
	return nil
}

func (f *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

func newProcessor(repo *fakeOutboxRepo, broker *fakeBroker, maxRetries int) *OutboxProcessor {
	return NewOutboxProcessor(&fakeTx{}, repo, broker, OutboxProcessorConfig{
		BatchSize:  10,
		MaxRetries: maxRetries,
		RetryDelay: time.Millisecond,
	}, logger.NewLogger(nil), workerMetrics)
}

func seedEvent(t *testing.T, repo *fakeOutboxRepo, channel string) uuid.UUID {
	t.Helper()
	event, err := model.NewOutboxEvent(model.EventResultApproved, channel, map[string]any{"resultId": uuid.New()})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), event))
	return event.ID
}

func TestProcessEventsPublishesAndMarksProcessed(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{}
	id := seedEvent(t, repo, model.ChannelPatient)

	p := newProcessor(repo, broker, 3)
	require.NoError(t, p.processEvents(context.Background()))

	require.Len(t, broker.published, 1)
	assert.Equal(t, model.ChannelPatient, broker.published[0].channel)
	assert.Equal(t, model.OutboxStatusProcessed, repo.get(id).Status)

	// A second pass finds nothing to do.
	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published, 1)
}

func TestProcessEventsSchedulesRetryOnFailure(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{failures: 1}
	id := seedEvent(t, repo, model.ChannelDoctor)

	p := newProcessor(repo, broker, 3)
	require.NoError(t, p.processEvents(context.Background()))

	e := repo.get(id)
	assert.Equal(t, model.OutboxStatusPending, e.Status)
	assert.Equal(t, 1, e.RetryCount)
	require.NotNil(t, e.ErrorMessage)
	require.NotNil(t, e.RetryAt)

	// Once the backoff elapses the event goes through.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, model.OutboxStatusProcessed, repo.get(id).Status)
	assert.Len(t, broker.published, 1)
}

func TestProcessEventsMarksFailedAfterMaxRetries(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{failures: 10}
	id := seedEvent(t, repo, model.ChannelLabTechnician)

	p := newProcessor(repo, broker, 2)
	require.NoError(t, p.processEvents(context.Background()))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, p.processEvents(context.Background()))

	e := repo.get(id)
	assert.Equal(t, model.OutboxStatusFailed, e.Status)
	assert.Empty(t, broker.published)

	// Failed events are left alone on later passes.
	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, model.OutboxStatusFailed, repo.get(id).Status)
}

func TestProcessEventsRespectsBatchSize(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &fakeBroker{}
	for i := 0; i < 5; i++ {
		seedEvent(t, repo, model.ChannelDoctor)
	}

	p := NewOutboxProcessor(&fakeTx{}, repo, broker, OutboxProcessorConfig{
		BatchSize: 2,
	}, logger.NewLogger(nil), workerMetrics)

	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published, 2)

	require.NoError(t, p.processEvents(context.Background()))
	require.NoError(t, p.processEvents(context.Background()))
	assert.Len(t, broker.published, 5)
}
