package medicaldata

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

type recordRepoPG struct{ pool *pgxpool.Pool }

func NewRecordRepoPG(pool *pgxpool.Pool) RecordRepository {
	return &recordRepoPG{pool: pool}
}

func (r *recordRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const recordCols = `id, patient_id, status, examination, examination_details, exam_date, exam_time,
	doctor, clinic_name, clinic_address, clinic_contact, price, currency, payment_method,
	guide, results, conclusion, recommendations, notes, pdf_file, link, manager_id,
	created_at, updated_at`

var recordSortColumns = map[string]string{
	"exam_date":   "exam_date",
	"examination": "examination",
	"price":       "price",
	"status":      "status",
	"created_at":  "created_at",
}

func (r *recordRepoPG) scanRecord(row pgx.Row) (*Record, error) {
	var m Record
	err := row.Scan(&m.ID, &m.PatientID, &m.Status, &m.Examination, &m.ExaminationDetails, &m.ExamDate, &m.ExamTime,
		&m.Doctor, &m.ClinicName, &m.ClinicAddress, &m.ClinicContact, &m.Price, &m.Currency, &m.PaymentMethod,
		&m.Guide, &m.Results, &m.Conclusion, &m.Recommendations, &m.Notes, &m.PDFFile, &m.Link, &m.ManagerID,
		&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *recordRepoPG) Create(ctx context.Context, m *Record) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_data (id, patient_id, status, examination, examination_details, exam_date, exam_time,
			doctor, clinic_name, clinic_address, clinic_contact, price, currency, payment_method,
			guide, results, conclusion, recommendations, notes, pdf_file, link, manager_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Status, m.Examination, m.ExaminationDetails, m.ExamDate, m.ExamTime,
		m.Doctor, m.ClinicName, m.ClinicAddress, m.ClinicContact, m.Price, m.Currency, m.PaymentMethod,
		m.Guide, m.Results, m.Conclusion, m.Recommendations, m.Notes, m.PDFFile, m.Link, m.ManagerID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	return db.ConstraintError(err, "patient_id")
}

func (r *recordRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM medical_data WHERE id = $1`, id))
}

func (r *recordRepoPG) Update(ctx context.Context, m *Record) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medical_data SET patient_id=$2, status=$3, examination=$4, examination_details=$5,
			exam_date=$6, exam_time=$7, doctor=$8, clinic_name=$9, clinic_address=$10,
			clinic_contact=$11, price=$12, currency=$13, payment_method=$14, guide=$15,
			results=$16, conclusion=$17, recommendations=$18, notes=$19, pdf_file=$20,
			link=$21, manager_id=$22, updated_at=NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.Status, m.Examination, m.ExaminationDetails, m.ExamDate, m.ExamTime,
		m.Doctor, m.ClinicName, m.ClinicAddress, m.ClinicContact, m.Price, m.Currency, m.PaymentMethod,
		m.Guide, m.Results, m.Conclusion, m.Recommendations, m.Notes, m.PDFFile, m.Link, m.ManagerID,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	return db.ConstraintError(err, "patient_id")
}

func (r *recordRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_data WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *recordRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	q := db.NewListQuery("medical_data", recordCols)
	if f.PatientID != nil {
		q.Eq("patient_id", *f.PatientID)
	}
	if f.Status != "" {
		q.Eq("status", f.Status)
	}
	if f.Search != "" {
		q.ILike("examination", pagination.Params{Search: f.Search}.LikePattern())
	}
	q.ApplySort(f.Sort, "exam_date DESC NULLS LAST, created_at DESC", recordSortColumns)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, q.CountSQL(), q.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, q.DataSQL(limit, offset), q.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Record
	for rows.Next() {
		m, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}
