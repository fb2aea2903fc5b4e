package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/domain/relay"
	"github.com/krauzhul/VoyagMED/internal/platform/metrics"
	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

func strPtr(s string) *string { return &s }

func newTestService(repo *mockNotificationRepo, sender *scriptedSender, attempts uint) *Service {
	svc := NewService(ServiceDeps{
		Notifications: repo,
		Sender:        sender,
		Acks:          &mockAcks{},
		MaxAttempts:   attempts,
		Logger:        zerolog.Nop(),
	})
	svc.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return svc
}

func seed(t *testing.T, repo *mockNotificationRepo) *Notification {
	t.Helper()
	n := &Notification{
		PatientID:   uuid.New(),
		Name:        "Утренний приём",
		Subject:     strPtr("medication"),
		MessageText: "Примите препарат",
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatal(err)
	}
	n.Status = StatusActive
	return n
}

func TestCreateNotification_Validation(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want string
	}{
		{"missing name", Notification{PatientID: uuid.New(), MessageText: "x"}, "name"},
		{"missing text", Notification{PatientID: uuid.New(), Name: "x", MessageText: "  "}, "message_text"},
		{"bad subject", Notification{PatientID: uuid.New(), Name: "x", MessageText: "y", Subject: strPtr("lab")}, "subject"},
		{"bad periodicity", Notification{PatientID: uuid.New(), Name: "x", MessageText: "y", Periodicity: strPtr("hourly")}, "periodicity"},
		{"text too long", Notification{PatientID: uuid.New(), Name: "x", MessageText: strings.Repeat("я", relay.MaxMessageLen+1)}, "message_text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMockNotificationRepo(), &scriptedSender{}, 3)
			n := tt.n
			err := svc.CreateNotification(context.Background(), &n)
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected validation error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateNotification_DefaultStatus(t *testing.T) {
	svc := newTestService(newMockNotificationRepo(), &scriptedSender{}, 3)
	n := &Notification{PatientID: uuid.New(), Name: "Визит", MessageText: "Завтра приём у врача"}
	if err := svc.CreateNotification(context.Background(), n); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Status != StatusActive {
		t.Errorf("expected status active, got %s", n.Status)
	}
}

func TestKind(t *testing.T) {
	n := &Notification{}
	if n.Kind() != relay.KindMedication {
		t.Errorf("expected medication default, got %s", n.Kind())
	}
	n.Subject = strPtr("appointment")
	if n.Kind() != relay.KindAppointment {
		t.Errorf("expected appointment, got %s", n.Kind())
	}
}

func TestSend_Success(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	sender := &scriptedSender{}
	svc := newTestService(repo, sender, 3)

	res, err := svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 1 || res.Delivery == nil || res.Delivery.ChatID != 555 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Notification.Status != StatusSent || res.Notification.SentAt == nil {
		t.Errorf("expected sent record, got %+v", res.Notification)
	}
	job := sender.jobs[0]
	if job.NotificationID != n.ID || job.Kind != relay.KindMedication || job.Message != n.MessageText {
		t.Errorf("unexpected job: %+v", job)
	}
}

func TestSend_RetriesDeliveryFailures(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	transient := &relay.DeliveryError{ChatID: 555, Cause: errors.New("timeout")}
	sender := &scriptedSender{errs: []error{transient, transient}}
	svc := newTestService(repo, sender, 3)

	res, err := svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts != 3 || len(sender.jobs) != 3 {
		t.Errorf("expected 3 attempts, got %d (%d jobs)", res.Attempts, len(sender.jobs))
	}
}

func TestSend_GivesUpAfterMaxAttempts(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	transient := &relay.DeliveryError{ChatID: 555, Cause: errors.New("bad gateway")}
	sender := &scriptedSender{errs: []error{transient, transient, transient, transient}}
	svc := newTestService(repo, sender, 2)

	res, err := svc.Send(context.Background(), n.ID)
	if !errors.Is(err, relay.ErrDeliveryFailed) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
	if len(sender.jobs) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(sender.jobs))
	}
	if res.Notification.Status != StatusFailed || res.Notification.LastError == nil {
		t.Errorf("expected failed record with last_error, got %+v", res.Notification)
	}
}

func TestSend_PermanentErrorsAreNotRetried(t *testing.T) {
	for _, perm := range []error{relay.ErrRecipientNotFound, relay.ErrInvalidJob} {
		repo := newMockNotificationRepo()
		n := seed(t, repo)
		sender := &scriptedSender{errs: []error{perm}}
		svc := newTestService(repo, sender, 5)

		_, err := svc.Send(context.Background(), n.ID)
		if !errors.Is(err, perm) {
			t.Errorf("expected %v, got %v", perm, err)
		}
		if len(sender.jobs) != 1 {
			t.Errorf("%v: expected 1 attempt, got %d", perm, len(sender.jobs))
		}
		if len(repo.deliveries) != 1 || repo.deliveries[0].Status != StatusFailed {
			t.Errorf("%v: expected failed delivery recorded, got %+v", perm, repo.deliveries)
		}
	}
}

func TestSend_BotAPIRejections(t *testing.T) {
	tests := []struct {
		name         string
		cause        error
		wantAttempts int
	}{
		{"blocked by user", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, 1},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, 1},
		{"rate limited", &tgbotapi.Error{Code: 429, Message: "Too Many Requests: retry after 1"}, 3},
		{"server error", &tgbotapi.Error{Code: 502, Message: "Bad Gateway"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockNotificationRepo()
			n := seed(t, repo)
			failure := &relay.DeliveryError{ChatID: 555, Cause: tt.cause}
			sender := &scriptedSender{errs: []error{failure, failure, failure}}
			svc := newTestService(repo, sender, 3)

			_, err := svc.Send(context.Background(), n.ID)
			if !errors.Is(err, relay.ErrDeliveryFailed) {
				t.Fatalf("expected delivery failure, got %v", err)
			}
			if len(sender.jobs) != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, len(sender.jobs))
			}
			if len(repo.deliveries) != 1 || repo.deliveries[0].Status != StatusFailed {
				t.Errorf("expected failed delivery recorded, got %+v", repo.deliveries)
			}
		})
	}
}

func TestSend_NotFound(t *testing.T) {
	sender := &scriptedSender{}
	svc := newTestService(newMockNotificationRepo(), sender, 3)
	if _, err := svc.Send(context.Background(), uuid.New()); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}
	if len(sender.jobs) != 0 {
		t.Error("expected no dispatch for a missing record")
	}
}

func TestSend_BookkeepingFailureKeepsSuccess(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	repo.failRecord = true
	svc := newTestService(repo, &scriptedSender{}, 3)

	res, err := svc.Send(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Delivery == nil {
		t.Error("expected delivery details")
	}
}

func TestSend_ObservesAttempts(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	svc := newTestService(repo, &scriptedSender{}, 3)
	svc.metrics = metrics.NewCollector("test", prometheus.NewRegistry())

	if _, err := svc.Send(context.Background(), n.ID); err != nil {
		t.Fatal(err)
	}
	if got := testutil.CollectAndCount(svc.metrics.SendAttempts); got != 1 {
		t.Errorf("expected one observed series, got %d", got)
	}
}

func TestAcknowledgments(t *testing.T) {
	repo := newMockNotificationRepo()
	n := seed(t, repo)
	svc := newTestService(repo, &scriptedSender{}, 3)
	svc.acks = &mockAcks{records: map[uuid.UUID][]*relay.AcknowledgmentRecord{
		n.ID: {{ID: uuid.New(), NotificationID: n.ID, ChatID: 555}},
	}}

	acks, err := svc.Acknowledgments(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(acks) != 1 || acks[0].ChatID != 555 {
		t.Errorf("unexpected acks: %+v", acks)
	}
	if _, err := svc.Acknowledgments(context.Background(), uuid.New()); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
