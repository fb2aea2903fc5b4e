package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krauzhul/VoyagMED/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type storePG struct{ pool *pgxpool.Pool }

// NewStorePG stores bindings and acknowledgments in the service database.
func NewStorePG(pool *pgxpool.Pool) Store {
	return &storePG{pool: pool}
}

func (s *storePG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return s.pool
}

const bindingCols = `id, chat_id, patient_id, username, is_active, created_at, updated_at`

func scanBinding(row pgx.Row) (*RecipientBinding, error) {
	var b RecipientBinding
	err := row.Scan(&b.ID, &b.ChatID, &b.PatientID, &b.Username, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrBindingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *storePG) ResolveByPatient(ctx context.Context, patientID uuid.UUID) (*RecipientBinding, error) {
	return scanBinding(s.conn(ctx).QueryRow(ctx, `
		SELECT `+bindingCols+` FROM telegram_users
		WHERE patient_id = $1 AND is_active
		ORDER BY created_at, id
		LIMIT 1`, patientID))
}

func (s *storePG) UpsertByChat(ctx context.Context, chatID int64, username *string) (*RecipientBinding, error) {
	return scanBinding(s.conn(ctx).QueryRow(ctx, `
		INSERT INTO telegram_users (id, chat_id, username, is_active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (chat_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, telegram_users.username),
			is_active = TRUE,
			updated_at = NOW()
		RETURNING `+bindingCols, uuid.New(), chatID, username))
}

func (s *storePG) Deactivate(ctx context.Context, chatID int64) error {
	tag, err := s.conn(ctx).Exec(ctx, `
		UPDATE telegram_users SET is_active = FALSE, updated_at = NOW()
		WHERE chat_id = $1`, chatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBindingNotFound
	}
	return nil
}

func (s *storePG) LinkPatient(ctx context.Context, chatID int64, patientID uuid.UUID) (*RecipientBinding, error) {
	b, err := scanBinding(s.conn(ctx).QueryRow(ctx, `
		UPDATE telegram_users SET patient_id = $2, updated_at = NOW()
		WHERE chat_id = $1
		RETURNING `+bindingCols, chatID, patientID))
	switch {
	case db.IsUniqueViolation(err):
		return nil, ErrPatientAlreadyLinked
	case db.IsForeignKeyViolation(err):
		return nil, ErrUnknownPatient
	}
	return b, err
}

func (s *storePG) GetByChat(ctx context.Context, chatID int64) (*RecipientBinding, error) {
	return scanBinding(s.conn(ctx).QueryRow(ctx,
		`SELECT `+bindingCols+` FROM telegram_users WHERE chat_id = $1`, chatID))
}

func (s *storePG) List(ctx context.Context, limit, offset int) ([]*RecipientBinding, int, error) {
	var total int
	if err := s.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM telegram_users`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT `+bindingCols+` FROM telegram_users
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*RecipientBinding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}

func (s *storePG) Record(ctx context.Context, rec *AcknowledgmentRecord) (bool, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	tag, err := s.conn(ctx).Exec(ctx, `
		INSERT INTO notification_acknowledgments (id, notification_id, chat_id, acknowledged_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (notification_id) DO NOTHING`,
		rec.ID, rec.NotificationID, rec.ChatID, rec.AcknowledgedAt)
	if err != nil {
		return false, fmt.Errorf("insert acknowledgment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *storePG) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*AcknowledgmentRecord, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT id, notification_id, chat_id, acknowledged_at
		FROM notification_acknowledgments
		WHERE notification_id = $1
		ORDER BY acknowledged_at`, notificationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*AcknowledgmentRecord
	for rows.Next() {
		var a AcknowledgmentRecord
		if err := rows.Scan(&a.ID, &a.NotificationID, &a.ChatID, &a.AcknowledgedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
