package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/internal/domain/relay"
)

type mockNotificationRepo struct {
	store      map[uuid.UUID]*Notification
	deliveries []Delivery
	failRecord bool
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{store: make(map[uuid.UUID]*Notification)}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	m.store[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.store[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return n, nil
}

func (m *mockNotificationRepo) Update(_ context.Context, n *Notification) error {
	if _, ok := m.store[n.ID]; !ok {
		return ErrNotificationNotFound
	}
	m.store[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockNotificationRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Notification, int, error) {
	var r []*Notification
	for _, n := range m.store {
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		r = append(r, n)
	}
	return r, len(r), nil
}

func (m *mockNotificationRepo) RecordDelivery(_ context.Context, id uuid.UUID, d Delivery) (*Notification, error) {
	if m.failRecord {
		return nil, errors.New("db down")
	}
	n, ok := m.store[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	m.deliveries = append(m.deliveries, d)
	cp := *n
	cp.Status = d.Status
	cp.LastError = d.LastError
	if d.SentAt != nil {
		cp.SentAt = d.SentAt
	}
	m.store[id] = &cp
	return &cp, nil
}

// scriptedSender returns errs in order, then succeeds.
type scriptedSender struct {
	mu   sync.Mutex
	errs []error
	jobs []relay.NotificationJob
}

func (s *scriptedSender) Dispatch(_ context.Context, job relay.NotificationJob) (*relay.DispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &relay.DispatchResult{NotificationID: job.NotificationID, ChatID: 555, MessageID: 9}, nil
}

type mockAcks struct {
	records map[uuid.UUID][]*relay.AcknowledgmentRecord
}

func (m *mockAcks) ListByNotification(_ context.Context, id uuid.UUID) ([]*relay.AcknowledgmentRecord, error) {
	return m.records[id], nil
}
