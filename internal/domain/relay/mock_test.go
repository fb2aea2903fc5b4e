package relay

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
)

var errStoreDown = errors.New("connection refused")

// mockStore is an in-memory Store keyed by chat id.
type mockStore struct {
	mu        sync.Mutex
	bindings  map[int64]*RecipientBinding
	acks      map[uuid.UUID]*AcknowledgmentRecord
	failWrite error
	failRead  error
	seq       int

	// missingPatients are ids LinkPatient rejects as having no patient row.
	missingPatients map[uuid.UUID]bool
}

func newMockStore() *mockStore {
	return &mockStore{
		bindings: make(map[int64]*RecipientBinding),
		acks:     make(map[uuid.UUID]*AcknowledgmentRecord),
	}
}

// bind inserts an active binding linked to patientID.
func (m *mockStore) bind(chatID int64, patientID uuid.UUID) *RecipientBinding {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	pid := patientID
	b := &RecipientBinding{
		ID:        uuid.New(),
		ChatID:    chatID,
		PatientID: &pid,
		Active:    true,
		CreatedAt: time.Unix(int64(m.seq), 0),
	}
	m.bindings[chatID] = b
	return b
}

func (m *mockStore) ResolveByPatient(_ context.Context, patientID uuid.UUID) (*RecipientBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, m.failRead
	}
	var matches []*RecipientBinding
	for _, b := range m.bindings {
		if b.Active && b.PatientID != nil && *b.PatientID == patientID {
			matches = append(matches, b)
		}
	}
	if len(matches) == 0 {
		return nil, ErrBindingNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.Before(matches[j].CreatedAt) })
	cp := *matches[0]
	return &cp, nil
}

func (m *mockStore) UpsertByChat(_ context.Context, chatID int64, username *string) (*RecipientBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return nil, m.failWrite
	}
	b, ok := m.bindings[chatID]
	if !ok {
		m.seq++
		b = &RecipientBinding{ID: uuid.New(), ChatID: chatID, CreatedAt: time.Unix(int64(m.seq), 0)}
		m.bindings[chatID] = b
	}
	if username != nil {
		u := *username
		b.Username = &u
	}
	b.Active = true
	cp := *b
	return &cp, nil
}

func (m *mockStore) Deactivate(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	b, ok := m.bindings[chatID]
	if !ok {
		return ErrBindingNotFound
	}
	b.Active = false
	return nil
}

func (m *mockStore) LinkPatient(_ context.Context, chatID int64, patientID uuid.UUID) (*RecipientBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return nil, m.failWrite
	}
	b, ok := m.bindings[chatID]
	if !ok {
		return nil, ErrBindingNotFound
	}
	if m.missingPatients[patientID] {
		return nil, ErrUnknownPatient
	}
	for other, ob := range m.bindings {
		if other != chatID && ob.PatientID != nil && *ob.PatientID == patientID {
			return nil, ErrPatientAlreadyLinked
		}
	}
	pid := patientID
	b.PatientID = &pid
	cp := *b
	return &cp, nil
}

func (m *mockStore) GetByChat(_ context.Context, chatID int64) (*RecipientBinding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bindings[chatID]
	if !ok {
		return nil, ErrBindingNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockStore) List(_ context.Context, limit, offset int) ([]*RecipientBinding, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, 0, m.failRead
	}
	var all []*RecipientBinding
	for _, b := range m.bindings {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockStore) Record(_ context.Context, rec *AcknowledgmentRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return false, m.failWrite
	}
	if _, ok := m.acks[rec.NotificationID]; ok {
		return false, nil
	}
	cp := *rec
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	m.acks[rec.NotificationID] = &cp
	return true, nil
}

func (m *mockStore) ListByNotification(_ context.Context, notificationID uuid.UUID) ([]*AcknowledgmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead != nil {
		return nil, m.failRead
	}
	if a, ok := m.acks[notificationID]; ok {
		return []*AcknowledgmentRecord{a}, nil
	}
	return nil, nil
}

func (m *mockStore) ackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.acks)
}

func (m *mockStore) bindingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bindings)
}

type sentAction struct {
	ChatID int64
	Text   string
	Button telegram.Button
}

type sentText struct {
	ChatID int64
	Text   string
}

type answered struct {
	CallbackID string
	Text       string
}

type cleared struct {
	ChatID    int64
	MessageID int
}

// mockMessenger records every outbound call.
type mockMessenger struct {
	mu        sync.Mutex
	actions   []sentAction
	texts     []sentText
	answers   []answered
	clears    []cleared
	failSend  error
	failReply error
	nextMsgID int
}

func newMockMessenger() *mockMessenger {
	return &mockMessenger{nextMsgID: 100}
}

func (m *mockMessenger) SendWithAction(_ context.Context, chatID int64, text string, button telegram.Button) (telegram.SentMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, sentAction{ChatID: chatID, Text: text, Button: button})
	if m.failSend != nil {
		return telegram.SentMessage{}, m.failSend
	}
	m.nextMsgID++
	return telegram.SentMessage{ChatID: chatID, MessageID: m.nextMsgID}, nil
}

func (m *mockMessenger) SendText(_ context.Context, chatID int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, sentText{ChatID: chatID, Text: text})
	return m.failReply
}

func (m *mockMessenger) AnswerCallback(_ context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, answered{CallbackID: callbackID, Text: text})
	return m.failReply
}

func (m *mockMessenger) ClearActions(_ context.Context, chatID int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears = append(m.clears, cleared{ChatID: chatID, MessageID: messageID})
	return m.failReply
}

func (m *mockMessenger) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.actions) + len(m.texts) + len(m.answers) + len(m.clears)
}
