package dashboard

import "context"

type Source interface {
	Counts(ctx context.Context) (map[string]int, error)
	RecentPatients(ctx context.Context, limit int) ([]*PatientBrief, error)
	UpcomingTasks(ctx context.Context, limit int) ([]*TaskBrief, error)
}
