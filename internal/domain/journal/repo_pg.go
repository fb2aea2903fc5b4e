package journal

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

type entryRepoPG struct{ pool *pgxpool.Pool }

func NewEntryRepoPG(pool *pgxpool.Pool) EntryRepository {
	return &entryRepoPG{pool: pool}
}

func (r *entryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, patient_id, status, event_date, event_time, mode, name,
	agenda, outcomes, additional_info, manager_id, created_at, updated_at`

var entrySortColumns = map[string]string{
	"event_date": "event_date",
	"name":       "name",
	"status":     "status",
	"created_at": "created_at",
}

func (r *entryRepoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.Status, &e.EventDate, &e.EventTime, &e.Mode, &e.Name,
		&e.Agenda, &e.Outcomes, &e.AdditionalInfo, &e.ManagerID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entryRepoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO journal (id, patient_id, status, event_date, event_time, mode, name,
			agenda, outcomes, additional_info, manager_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.Status, e.EventDate, e.EventTime, e.Mode, e.Name,
		e.Agenda, e.Outcomes, e.AdditionalInfo, e.ManagerID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	return db.ConstraintError(err, "patient_id")
}

func (r *entryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return r.scanEntry(r.conn(ctx).QueryRow(ctx, `SELECT `+entryCols+` FROM journal WHERE id = $1`, id))
}

func (r *entryRepoPG) Update(ctx context.Context, e *Entry) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE journal SET patient_id=$2, status=$3, event_date=$4, event_time=$5, mode=$6,
			name=$7, agenda=$8, outcomes=$9, additional_info=$10, manager_id=$11, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		e.ID, e.PatientID, e.Status, e.EventDate, e.EventTime, e.Mode, e.Name,
		e.Agenda, e.Outcomes, e.AdditionalInfo, e.ManagerID,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrEntryNotFound
	}
	return db.ConstraintError(err, "patient_id")
}

func (r *entryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM journal WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *entryRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Entry, int, error) {
	q := db.NewListQuery("journal", entryCols)
	if f.PatientID != nil {
		q.Eq("patient_id", *f.PatientID)
	}
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.Search != "" {
		q.ILike("name", pagination.Params{Search: f.Search}.LikePattern())
	}
	q.ApplySort(f.Sort, "event_date DESC NULLS LAST, created_at DESC", entrySortColumns)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(limit, offset), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
