package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"

	"github.com/krauzhul/VoyagMED/internal/platform/db"
)

const (
	tableRecipients      = "telegram_users"
	tableAcknowledgments = "notification_acknowledgments"
)

type storePostgREST struct {
	client *postgrest.Client
	now    func() time.Time
}

// NewStorePostgREST talks to the hosted database through its REST gateway
// using the service role key, for deployments where the relay has no direct
// Postgres access.
func NewStorePostgREST(baseURL, serviceKey string) Store {
	restURL := strings.TrimRight(baseURL, "/") + "/rest/v1"
	client := postgrest.NewClient(restURL, "public", map[string]string{
		"apikey":        serviceKey,
		"Authorization": "Bearer " + serviceKey,
	})
	return &storePostgREST{client: client, now: time.Now}
}

// The REST client takes no context; a cancelled request is refused up front
// and the gateway's own statement timeout bounds the rest.
func (s *storePostgREST) from(ctx context.Context, table string) (*postgrest.QueryBuilder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.client.From(table), nil
}

func chatIDString(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func firstBinding(rows []*RecipientBinding) (*RecipientBinding, error) {
	if len(rows) == 0 {
		return nil, ErrBindingNotFound
	}
	return rows[0], nil
}

func (s *storePostgREST) ResolveByPatient(ctx context.Context, patientID uuid.UUID) (*RecipientBinding, error) {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return nil, err
	}
	var rows []*RecipientBinding
	_, err = q.Select(bindingCols, "", false).
		Eq("patient_id", patientID.String()).
		Eq("is_active", "true").
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("select recipient: %w", err)
	}
	return firstBinding(rows)
}

func (s *storePostgREST) UpsertByChat(ctx context.Context, chatID int64, username *string) (*RecipientBinding, error) {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return nil, err
	}
	row := map[string]interface{}{
		"chat_id":    chatID,
		"is_active":  true,
		"updated_at": s.now().UTC(),
	}
	if username != nil {
		row["username"] = *username
	}

	var rows []*RecipientBinding
	if _, err := q.Upsert(row, "chat_id", "representation", "").ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("upsert recipient: %w", err)
	}
	return firstBinding(rows)
}

func (s *storePostgREST) Deactivate(ctx context.Context, chatID int64) error {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return err
	}
	var rows []*RecipientBinding
	_, err = q.Update(map[string]interface{}{"is_active": false, "updated_at": s.now().UTC()}, "representation", "").
		Eq("chat_id", chatIDString(chatID)).
		ExecuteTo(&rows)
	if err != nil {
		return fmt.Errorf("deactivate recipient: %w", err)
	}
	_, err = firstBinding(rows)
	return err
}

func (s *storePostgREST) LinkPatient(ctx context.Context, chatID int64, patientID uuid.UUID) (*RecipientBinding, error) {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return nil, err
	}
	var rows []*RecipientBinding
	_, err = q.Update(map[string]interface{}{"patient_id": patientID.String(), "updated_at": s.now().UTC()}, "representation", "").
		Eq("chat_id", chatIDString(chatID)).
		ExecuteTo(&rows)
	switch {
	case isRESTViolation(err, db.UniqueViolation):
		return nil, ErrPatientAlreadyLinked
	case isRESTViolation(err, db.ForeignKeyViolation):
		return nil, ErrUnknownPatient
	}
	if err != nil {
		return nil, fmt.Errorf("link patient: %w", err)
	}
	return firstBinding(rows)
}

func (s *storePostgREST) GetByChat(ctx context.Context, chatID int64) (*RecipientBinding, error) {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return nil, err
	}
	var rows []*RecipientBinding
	if _, err := q.Select(bindingCols, "", false).Eq("chat_id", chatIDString(chatID)).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select recipient: %w", err)
	}
	return firstBinding(rows)
}

func (s *storePostgREST) List(ctx context.Context, limit, offset int) ([]*RecipientBinding, int, error) {
	q, err := s.from(ctx, tableRecipients)
	if err != nil {
		return nil, 0, err
	}
	var rows []*RecipientBinding
	total, err := q.Select(bindingCols, "exact", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Range(offset, offset+limit-1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipients: %w", err)
	}
	return rows, int(total), nil
}

// ackRow is the insert shape; PostgREST fills the defaults.
type ackRow struct {
	ID             string    `json:"id"`
	NotificationID string    `json:"notification_id"`
	ChatID         int64     `json:"chat_id"`
	AcknowledgedAt time.Time `json:"acknowledged_at"`
}

func (s *storePostgREST) Record(ctx context.Context, rec *AcknowledgmentRecord) (bool, error) {
	q, err := s.from(ctx, tableAcknowledgments)
	if err != nil {
		return false, err
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, _, err = q.Insert(ackRow{
		ID:             rec.ID.String(),
		NotificationID: rec.NotificationID.String(),
		ChatID:         rec.ChatID,
		AcknowledgedAt: rec.AcknowledgedAt,
	}, false, "", "minimal", "").Execute()
	if isRESTViolation(err, db.UniqueViolation) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert acknowledgment: %w", err)
	}
	return true, nil
}

func (s *storePostgREST) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*AcknowledgmentRecord, error) {
	q, err := s.from(ctx, tableAcknowledgments)
	if err != nil {
		return nil, err
	}
	body, _, err := q.Select("id, notification_id, chat_id, acknowledged_at", "", false).
		Eq("notification_id", notificationID.String()).
		Order("acknowledged_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list acknowledgments: %w", err)
	}
	var items []*AcknowledgmentRecord
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode acknowledgments: %w", err)
	}
	return items, nil
}

// The REST client flattens gateway errors to "(code) message".
// The gateway reports Postgres failures as "(SQLSTATE) message".
func isRESTViolation(err error, code string) bool {
	return err != nil && strings.Contains(err.Error(), "("+code+")")
}
