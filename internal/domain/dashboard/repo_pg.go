package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type sourcePG struct{ pool *pgxpool.Pool }

func NewSourcePG(pool *pgxpool.Pool) Source {
	return &sourcePG{pool: pool}
}

// countsSQL selects one COUNT(*) per entry of Tables, in order.
func countsSQL() string {
	parts := make([]string, len(Tables))
	for i, t := range Tables {
		parts[i] = fmt.Sprintf("(SELECT COUNT(*) FROM %s)", t)
	}
	return "SELECT " + strings.Join(parts, ", ")
}

func (s *sourcePG) Counts(ctx context.Context) (map[string]int, error) {
	vals := make([]int, len(Tables))
	dest := make([]interface{}, len(Tables))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := s.pool.QueryRow(ctx, countsSQL()).Scan(dest...); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	out := make(map[string]int, len(Tables))
	for i, t := range Tables {
		out[t] = vals[i]
	}
	return out, nil
}

func (s *sourcePG) RecentPatients(ctx context.Context, limit int) ([]*PatientBrief, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, full_name, created_at FROM patients ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent patients: %w", err)
	}
	defer rows.Close()
	var out []*PatientBrief
	for rows.Next() {
		var p PatientBrief
		if err := rows.Scan(&p.ID, &p.FullName, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// UpcomingTasks returns open tasks by due date; tasks without one sort last.
func (s *sourcePG) UpcomingTasks(ctx context.Context, limit int) ([]*TaskBrief, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.patient_id, p.full_name, t.task_name, t.status, t.due_date
		FROM tasks t
		LEFT JOIN patients p ON p.id = t.patient_id
		WHERE t.status IN ('new', 'in_progress')
		ORDER BY t.due_date ASC NULLS LAST, t.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("upcoming tasks: %w", err)
	}
	defer rows.Close()
	var out []*TaskBrief
	for rows.Next() {
		var t TaskBrief
		if err := rows.Scan(&t.ID, &t.PatientID, &t.PatientName, &t.TaskName, &t.Status, &t.DueDate); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
