package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/listingz-backend/pkg/config"
	"github.com/angelmondragon/listingz-backend/pkg/db/models"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/metrics"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/listingz-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	first := orderEvent(t, enums.EventOrderPaid, 0)
	second := orderEvent(t, enums.EventOrderPaid, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("transient")},
		fakePublishResult{},
	}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, pub, resolvingRegistry(), dlq, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{first.ID}, repo.failed)
	require.Equal(t, []uuid.UUID{second.ID}, repo.published)
	require.Empty(t, repo.terminal)
	require.Empty(t, dlq.entries)
}

func TestProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, resolvingRegistry(), &fakeDLQRepo{}, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestPublishSetsAttributesAndOrderingKey(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, &fakeRepo{events: []models.OutboxEvent{event}}, pub, resolvingRegistry(), &fakeDLQRepo{}, nil)

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	require.Equal(t, "order_created", msg.Attributes["event_type"])
	require.Equal(t, event.AggregateID.String(), msg.Attributes["aggregate_id"])
	require.Equal(t, event.ID.String(), msg.Attributes["event_id"])
	require.Equal(t, "order:"+event.AggregateID.String(), msg.OrderingKey)
	require.JSONEq(t, string(event.Payload), string(msg.Data))
}

func TestProcessBatchDeadLettersUnresolvableEvents(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, &fakePublisher{}, reg, dlq, nil)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Len(t, dlq.entries, 1)

	entry := dlq.entries[0]
	require.Equal(t, event.ID, entry.EventID)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.JSONEq(t, string(event.Payload), string(entry.Payload))
	require.NotNil(t, entry.ErrorMessage)
	require.Contains(t, *entry.ErrorMessage, "invalid payload")
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)
}

func TestProcessBatchDeadLettersMissingPublisher(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlq := &fakeDLQRepo{}
	service := newTestService(t, repo, nil, resolvingRegistry(), dlq, nil)
	service.publisherFactory = func(string) publisher { return nil }

	_, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, dlq.entries[0].ErrorReason)
}

func TestProcessBatchDeadLettersAtMaxAttempts(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("transient")}}}
	dlq := &fakeDLQRepo{}
	reg := prometheus.NewRegistry()
	service := newTestService(t, repo, pub, resolvingRegistry(), dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})
	service.metrics = metrics.NewOutboxMetrics(reg)

	processed, err := service.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	require.Equal(t, 1, dlq.entries[0].AttemptCount)
	require.Empty(t, repo.failed)
	require.Equal(t, []uuid.UUID{event.ID}, repo.terminal)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, mfs, 1)
	require.Len(t, mfs[0].GetMetric(), 1)
	require.Equal(t, 1.0, mfs[0].GetMetric()[0].GetCounter().GetValue())
}

func TestProcessBatchPropagatesBookkeepingErrors(t *testing.T) {
	event := orderEvent(t, enums.EventOrderCreated, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{event}, markErr: errors.New("db down")}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	service := newTestService(t, repo, pub, resolvingRegistry(), &fakeDLQRepo{}, nil)

	_, err := service.processBatch(context.Background())
	require.ErrorContains(t, err, "db down")
}

func TestNewServiceRequiresDLQ(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.Nop(),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: &fakeRepo{},
		Registry:   resolvingRegistry(),
	})
	require.EqualError(t, err, "dlq repository is required")
}

func TestNextBackoffCapsAtMax(t *testing.T) {
	require.Equal(t, time.Second, nextBackoff(0, 500*time.Millisecond, maxBackoff))
	require.Equal(t, 4*time.Second, nextBackoff(2*time.Second, time.Second, maxBackoff))
	require.Equal(t, maxBackoff, nextBackoff(8*time.Second, time.Second, maxBackoff))
}

func TestWithJitterStaysInWindow(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := withJitter(time.Second)
		require.GreaterOrEqual(t, got, time.Second)
		require.Less(t, got, time.Second+jitterWindow)
	}
	require.Zero(t, withJitter(0))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	service, err := NewService(ServiceParams{
		Config: &config.Config{Outbox: outboxCfg},
		Logger: logger.New(logger.Options{
			ServiceName: "outbox-publisher-test",
			Output:      io.Discard,
		}),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	require.NoError(t, err)
	return service
}

func orderEvent(tb testing.TB, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	tb.Helper()
	id := uuid.New()
	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: id, Total: 100})
	require.NoError(tb, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(tb, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   id,
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func resolvingRegistry() *fakeRegistry {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "listingz-domain-events"},
		Payload:    &payloads.OrderCreatedEvent{},
	}}
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
	markErr   error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Descriptor.EventType = event.EventType
	resolved.Descriptor.AggregateType = event.AggregateType
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
