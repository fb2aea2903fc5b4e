package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krauzhul/VoyagMED/internal/platform/db"
	"github.com/krauzhul/VoyagMED/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewNotificationRepoPG(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepoPG{pool: pool}
}

func (r *notificationRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const notificationCols = `id, patient_id, status, recipient_type, subject, name, schedule_from_source,
	periodicity, message_schedule, additional_info, text_constructor, message_text,
	next_notification_time, created_by, last_error, sent_at, created_at, updated_at`

var notificationSortColumns = map[string]string{
	"name":                   "name",
	"status":                 "status",
	"next_notification_time": "next_notification_time",
	"sent_at":                "sent_at",
	"created_at":             "created_at",
}

func (r *notificationRepoPG) scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.PatientID, &n.Status, &n.RecipientType, &n.Subject, &n.Name, &n.ScheduleFromSource,
		&n.Periodicity, &n.MessageSchedule, &n.AdditionalInfo, &n.TextConstructor, &n.MessageText,
		&n.NextNotificationTime, &n.CreatedBy, &n.LastError, &n.SentAt, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	n.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notifications (id, patient_id, status, recipient_type, subject, name, schedule_from_source,
			periodicity, message_schedule, additional_info, text_constructor, message_text,
			next_notification_time, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		n.ID, n.PatientID, n.Status, n.RecipientType, n.Subject, n.Name, n.ScheduleFromSource,
		n.Periodicity, n.MessageSchedule, n.AdditionalInfo, n.TextConstructor, n.MessageText,
		n.NextNotificationTime, n.CreatedBy,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	return db.ConstraintError(err, "patient_id")
}

func (r *notificationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	return r.scanNotification(r.conn(ctx).QueryRow(ctx, `SELECT `+notificationCols+` FROM notifications WHERE id = $1`, id))
}

// Update leaves last_error and sent_at alone; only RecordDelivery writes them.
func (r *notificationRepoPG) Update(ctx context.Context, n *Notification) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE notifications SET patient_id=$2, status=$3, recipient_type=$4, subject=$5, name=$6,
			schedule_from_source=$7, periodicity=$8, message_schedule=$9, additional_info=$10,
			text_constructor=$11, message_text=$12, next_notification_time=$13, created_by=$14,
			updated_at=NOW()
		WHERE id = $1
		RETURNING last_error, sent_at, created_at, updated_at`,
		n.ID, n.PatientID, n.Status, n.RecipientType, n.Subject, n.Name,
		n.ScheduleFromSource, n.Periodicity, n.MessageSchedule, n.AdditionalInfo,
		n.TextConstructor, n.MessageText, n.NextNotificationTime, n.CreatedBy,
	).Scan(&n.LastError, &n.SentAt, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotificationNotFound
	}
	return db.ConstraintError(err, "patient_id")
}

func (r *notificationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Notification, int, error) {
	q := db.NewListQuery("notifications", notificationCols)
	if f.PatientID != nil {
		q.Eq("patient_id", *f.PatientID)
	}
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.Search != "" {
		q.ILike("name", pagination.Params{Search: f.Search}.LikePattern())
	}
	q.ApplySort(f.Sort, "created_at DESC", notificationSortColumns)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(limit, offset), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *notificationRepoPG) RecordDelivery(ctx context.Context, id uuid.UUID, d Delivery) (*Notification, error) {
	return r.scanNotification(r.conn(ctx).QueryRow(ctx, `
		UPDATE notifications SET status=$2, last_error=$3, sent_at=COALESCE($4, sent_at), updated_at=NOW()
		WHERE id = $1
		RETURNING `+notificationCols,
		id, d.Status, d.LastError, d.SentAt))
}
