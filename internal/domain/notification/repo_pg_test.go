package notification

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/krauzhul/VoyagMED/internal/platform/db/dbtest"
	"github.com/krauzhul/VoyagMED/pkg/apperr"
)

func TestNotificationRepoPG_UnknownPatient(t *testing.T) {
	repo := NewNotificationRepoPG(nil)
	ctx := dbtest.WithFailingTx(context.Background(), dbtest.ForeignKeyViolation("notifications_patient_id_fkey"))

	err := repo.Create(ctx, &Notification{PatientID: uuid.New()})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError on create, got %v", err)
	}
	if he := apperr.HTTP(err, ErrNotificationNotFound); he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", he.Code)
	}

	err = repo.Update(ctx, &Notification{ID: uuid.New(), PatientID: uuid.New()})
	if !errors.As(err, &ve) {
		t.Errorf("expected ValidationError on update, got %v", err)
	}
}
