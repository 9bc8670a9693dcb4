package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/bib/pkg/events"
	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/model"
	"github.com/bibbank/bib/services/churn-service/internal/domain/port"
	"github.com/bibbank/bib/services/churn-service/internal/domain/service"
)

// --- Mock implementations ---

type mockPredictionRepository struct {
	mu       sync.Mutex
	saved    []*model.ChurnPrediction
	saveFunc func(ctx context.Context, p *model.ChurnPrediction) error
}

func (m *mockPredictionRepository) Save(ctx context.Context, p *model.ChurnPrediction) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockPredictionRepository) FindByID(_ context.Context, id uuid.UUID) (*model.ChurnPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.saved {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, port.ErrPredictionNotFound
}

func (m *mockPredictionRepository) FindByCustomerID(_ context.Context, customerID string, limit, offset int) ([]*model.ChurnPrediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ChurnPrediction
	for _, p := range m.saved {
		if p.CustomerID() == customerID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mockEventPublisher struct {
	published   []events.DomainEvent
	publishFunc func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.published = append(m.published, evts...)
	return nil
}

type mockScorer struct {
	decision service.Decision
	err      error
	lastRec  feature.Record
}

func (m *mockScorer) PredictOne(rec feature.Record) (service.Decision, error) {
	m.lastRec = rec
	return m.decision, m.err
}

func (m *mockScorer) Version() string { return "test-model" }

type mockMetrics struct {
	labels   []string
	unseen   []feature.UnseenCategory
	failures []string
}

func (m *mockMetrics) RecordPrediction(_ context.Context, label string, _ time.Duration, unseen []feature.UnseenCategory) {
	m.labels = append(m.labels, label)
	m.unseen = append(m.unseen, unseen...)
}

func (m *mockMetrics) RecordFailure(_ context.Context, reason string) {
	m.failures = append(m.failures, reason)
}
