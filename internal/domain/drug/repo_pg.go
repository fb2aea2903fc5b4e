package drug

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

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// "interval" is a reserved word in Postgres.
const prescriptionCols = `id, patient_id, status, mode, name, dose, unit, quantities,
	dosage_form, periodicity, week_days, "interval", course_break, time_start,
	date_start, date_end, administration_method, note, note_for_manager, drug_link,
	manager_id, created_at, updated_at`

var prescriptionSortColumns = map[string]string{
	"name":       "name",
	"date_start": "date_start",
	"date_end":   "date_end",
	"status":     "status",
	"created_at": "created_at",
}

func (r *prescriptionRepoPG) scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.Status, &p.Mode, &p.Name, &p.Dose, &p.Unit, &p.Quantities,
		&p.DosageForm, &p.Periodicity, &p.WeekDays, &p.Interval, &p.CourseBreak, &p.TimeStart,
		&p.DateStart, &p.DateEnd, &p.AdministrationMethod, &p.Note, &p.NoteForManager, &p.DrugLink,
		&p.ManagerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO drugs (id, patient_id, status, mode, name, dose, unit, quantities,
			dosage_form, periodicity, week_days, "interval", course_break, time_start,
			date_start, date_end, administration_method, note, note_for_manager, drug_link, manager_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.Status, p.Mode, p.Name, p.Dose, p.Unit, p.Quantities,
		p.DosageForm, p.Periodicity, p.WeekDays, p.Interval, p.CourseBreak, p.TimeStart,
		p.DateStart, p.DateEnd, p.AdministrationMethod, p.Note, p.NoteForManager, p.DrugLink, p.ManagerID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.ConstraintError(err, "patient_id")
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return r.scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM drugs WHERE id = $1`, id))
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE drugs SET patient_id=$2, status=$3, mode=$4, name=$5, dose=$6, unit=$7, quantities=$8,
			dosage_form=$9, periodicity=$10, week_days=$11, "interval"=$12, course_break=$13,
			time_start=$14, date_start=$15, date_end=$16, administration_method=$17, note=$18,
			note_for_manager=$19, drug_link=$20, manager_id=$21, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.PatientID, p.Status, p.Mode, p.Name, p.Dose, p.Unit, p.Quantities,
		p.DosageForm, p.Periodicity, p.WeekDays, p.Interval, p.CourseBreak, p.TimeStart,
		p.DateStart, p.DateEnd, p.AdministrationMethod, p.Note, p.NoteForManager, p.DrugLink, p.ManagerID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPrescriptionNotFound
	}
	return db.ConstraintError(err, "patient_id")
}

func (r *prescriptionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM drugs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPrescriptionNotFound
	}
	return nil
}

func (r *prescriptionRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Prescription, int, error) {
	q := db.NewListQuery("drugs", prescriptionCols)
	if f.PatientID != nil {
		q.Eq("patient_id", *f.PatientID)
	}
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.Search != "" {
		q.ILike("name", pagination.Params{Search: f.Search}.LikePattern())
	}
	q.ApplySort(f.Sort, "created_at DESC", prescriptionSortColumns)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(limit, offset), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := r.scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
