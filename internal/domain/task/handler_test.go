package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func httpCode(t *testing.T, err error, rec *httptest.ResponseRecorder) int {
	t.Helper()
	if err == nil {
		return rec.Code
	}
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	return he.Code
}

func TestHandler_CreateTask(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","task_name":"Анализ крови","start_date":"2024-05-01","due_date":"2024-05-03"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateTask(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"new"`) {
		t.Errorf("expected default status in body, got %s", rec.Body.String())
	}
}

func TestHandler_CreateTask_DueBeforeStart(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","task_name":"x","start_date":"2024-05-03","due_date":"2024-05-01"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if code := httpCode(t, h.CreateTask(e.NewContext(req, rec)), rec); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_GetTask_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if code := httpCode(t, h.GetTask(c), rec); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_ListTasks(t *testing.T) {
	h, e := newTestHandler()
	pid := uuid.New()
	_ = h.svc.CreateTask(context.Background(), &Task{PatientID: pid, TaskName: "a"})

	req := httptest.NewRequest(http.MethodGet, "/?patient_id="+pid.String(), nil)
	rec := httptest.NewRecorder()
	if err := h.ListTasks(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one task, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/?patient_id=bad", nil)
	rec = httptest.NewRecorder()
	if code := httpCode(t, h.ListTasks(e.NewContext(req, rec)), rec); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad patient_id, got %d", code)
	}
}

func TestHandler_DeleteTask(t *testing.T) {
	h, e := newTestHandler()
	tk := &Task{PatientID: uuid.New(), TaskName: "a"}
	_ = h.svc.CreateTask(context.Background(), tk)

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(tk.ID.String())
	if err := h.DeleteTask(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
