package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/krauzhul/VoyagMED/internal/platform/auth"
)

func newTestHandler(store *mockStore, msg *mockMessenger, secret string) *Handler {
	log := zerolog.Nop()
	return NewHandler(HandlerDeps{
		Dispatcher:    NewDispatcher(store, msg, log, nil),
		Receiver:      NewReceiver(store, msg, log, nil),
		Onboarding:    NewOnboarding(store, msg, log, nil),
		Directory:     store,
		Acks:          store,
		WebhookSecret: secret,
		Logger:        log,
	})
}

func withRoles(req *http.Request, roles ...string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), "staff-1", roles))
}

const startUpdate = `{
  "update_id": 1001,
  "message": {
    "message_id": 1,
    "date": 1700000000,
    "from": {"id": 555, "is_bot": false, "first_name": "Anna", "username": "anna"},
    "chat": {"id": 555, "type": "private"},
    "text": "/start",
    "entities": [{"type": "bot_command", "offset": 0, "length": 6}]
  }
}`

func callbackUpdate(data string) string {
	return `{
  "update_id": 1002,
  "callback_query": {
    "id": "cb-77",
    "from": {"id": 555, "is_bot": false, "first_name": "Anna"},
    "message": {"message_id": 42, "date": 1700000000, "chat": {"id": 555, "type": "private"}},
    "chat_instance": "x",
    "data": "` + data + `"
  }
}`
}

func TestWebhook_RejectsNonPost(t *testing.T) {
	e := echo.New()
	h := newTestHandler(newMockStore(), newMockMessenger(), "")

	req := httptest.NewRequest(http.MethodGet, "/telegram/webhook", nil)
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Body.String() != "Expected a POST request" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhook_SecretMismatch(t *testing.T) {
	e := echo.New()
	store := newMockStore()
	h := newTestHandler(store, newMockMessenger(), "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(startUpdate))
	req.Header.Set(SecretTokenHeader, "wrong")
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if store.bindingCount() != 0 {
		t.Error("update must not be processed")
	}
}

func TestWebhook_Start(t *testing.T) {
	e := echo.New()
	store := newMockStore()
	msg := newMockMessenger()
	h := newTestHandler(store, msg, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(startUpdate))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(SecretTokenHeader, "s3cret")
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if _, err := store.GetByChat(context.Background(), 555); err != nil {
		t.Errorf("expected binding for chat 555: %v", err)
	}
	if len(msg.texts) != 1 || msg.texts[0].ChatID != 555 {
		t.Errorf("expected welcome to chat 555, got %+v", msg.texts)
	}
}

func TestWebhook_Callback(t *testing.T) {
	e := echo.New()
	store := newMockStore()
	msg := newMockMessenger()
	h := newTestHandler(store, msg, "")
	id := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(callbackUpdate("ack:"+id.String())))
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	recs, _ := store.ListByNotification(context.Background(), id)
	if len(recs) != 1 || recs[0].ChatID != 555 {
		t.Errorf("expected acknowledgment from chat 555, got %+v", recs)
	}
	if len(msg.clears) != 1 || msg.clears[0].MessageID != 42 {
		t.Errorf("expected buttons cleared on message 42, got %+v", msg.clears)
	}
}

func TestWebhook_MessengerFailureIs500(t *testing.T) {
	e := echo.New()
	msg := newMockMessenger()
	msg.failReply = errStoreDown
	h := newTestHandler(newMockStore(), msg, "")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(startUpdate))
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if rec.Body.String() != "Internal Server Error" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestWebhook_BadJSON(t *testing.T) {
	e := echo.New()
	h := newTestHandler(newMockStore(), newMockMessenger(), "")

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestWebhook_IgnoresPlainText(t *testing.T) {
	e := echo.New()
	msg := newMockMessenger()
	h := newTestHandler(newMockStore(), msg, "")

	body := `{"update_id": 5, "message": {"message_id": 1, "date": 1, "chat": {"id": 1, "type": "private"}, "text": "hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	if err := h.Webhook(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if msg.calls() != 0 {
		t.Errorf("expected no replies, got %d", msg.calls())
	}
}

func TestDispatchHandler(t *testing.T) {
	store := newMockStore()
	msg := newMockMessenger()
	patientID := uuid.New()
	store.bind(123, patientID)
	h := newTestHandler(store, msg, "")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "sent",
			body:       `{"notification_id":"` + uuid.NewString() + `","patient_id":"` + patientID.String() + `","message":"Примите лекарство","type":"medication"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown patient",
			body:       `{"notification_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","message":"x","type":"medication"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad type",
			body:       `{"notification_id":"` + uuid.NewString() + `","patient_id":"` + patientID.String() + `","message":"x","type":"sms"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad uuid",
			body:       `{"notification_id":"n1","patient_id":"p1","message":"x","type":"medication"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/relay/dispatch", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			if err := h.Dispatch(e.NewContext(req, rec)); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDispatchHandler_ResponseBody(t *testing.T) {
	store := newMockStore()
	msg := newMockMessenger()
	patientID := uuid.New()
	store.bind(123, patientID)
	h := newTestHandler(store, msg, "")

	e := echo.New()
	body := `{"notification_id":"` + uuid.NewString() + `","patient_id":"` + patientID.String() + `","message":"hi","type":"appointment"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/relay/dispatch", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Dispatch(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}

	var resp DispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ChatID != 123 || resp.MessageID == 0 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestDispatchHandler_StoreFailureHidesCause(t *testing.T) {
	store := newMockStore()
	store.failRead = errStoreDown
	h := newTestHandler(store, newMockMessenger(), "")

	e := echo.New()
	body := `{"notification_id":"` + uuid.NewString() + `","patient_id":"` + uuid.NewString() + `","message":"hi","type":"appointment"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/relay/dispatch", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Dispatch(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("expected generic message, got %q", resp.Error)
	}
	if strings.Contains(rec.Body.String(), errStoreDown.Error()) {
		t.Errorf("store error leaked to client: %s", rec.Body.String())
	}
}

func TestListRecipients(t *testing.T) {
	store := newMockStore()
	h := newTestHandler(store, newMockMessenger(), "")
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.ListRecipients(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	var empty map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(empty["data"]) != "[]" {
		t.Errorf("expected empty data array, got %s", empty["data"])
	}

	store.bind(7, uuid.New())
	rec = httptest.NewRecorder()
	if err := h.ListRecipients(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	var page struct {
		Data  []RecipientBinding `json:"data"`
		Total int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 || page.Data[0].ChatID != 7 {
		t.Errorf("unexpected page %+v", page)
	}

	store.failRead = errStoreDown
	err := h.ListRecipients(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
	if he.Message != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("expected generic message, got %v", he.Message)
	}
}

func TestDispatchStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{invalidJob("x"), http.StatusBadRequest},
		{ErrRecipientNotFound, http.StatusNotFound},
		{&DeliveryError{ChatID: 1, Cause: errStoreDown}, http.StatusBadGateway},
		{&PersistenceError{Op: "resolve", Cause: errStoreDown}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := DispatchStatus(tt.err); got != tt.want {
			t.Errorf("DispatchStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRoutes_RoleEnforcement(t *testing.T) {
	store := newMockStore()
	store.bind(1, uuid.New())
	h := newTestHandler(store, newMockMessenger(), "")

	e := echo.New()
	h.RegisterRoutes(e.Group("/api/v1"))

	req := withRoles(httptest.NewRequest(http.MethodGet, "/api/v1/relay/recipients", nil), auth.RoleViewer)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("viewer list: expected 200, got %d", rec.Code)
	}

	body := `{"patient_id":"` + uuid.NewString() + `"}`
	req = withRoles(httptest.NewRequest(http.MethodPut, "/api/v1/relay/recipients/1/patient", strings.NewReader(body)), auth.RoleViewer)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("viewer link: expected 403, got %d", rec.Code)
	}
}

func TestLinkPatient(t *testing.T) {
	store := newMockStore()
	taken := uuid.New()
	store.bind(1, taken)
	_, _ = store.UpsertByChat(context.Background(), 2, nil)
	ghost := uuid.New()
	store.missingPatients = map[uuid.UUID]bool{ghost: true}
	h := newTestHandler(store, newMockMessenger(), "")

	tests := []struct {
		name       string
		chatID     string
		patientID  string
		wantStatus int
	}{
		{"linked", "2", uuid.NewString(), http.StatusOK},
		{"taken", "2", taken.String(), http.StatusConflict},
		{"unknown chat", "99", uuid.NewString(), http.StatusNotFound},
		{"unknown patient", "2", ghost.String(), http.StatusNotFound},
		{"bad chat", "abc", uuid.NewString(), http.StatusBadRequest},
		{"bad patient", "2", "nope", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"patient_id":"`+tt.patientID+`"}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("chat_id")
			c.SetParamValues(tt.chatID)

			err := h.LinkPatient(c)
			status := rec.Code
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			} else if err != nil {
				t.Fatal(err)
			}
			if status != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, status)
			}
		})
	}
}

func TestListAcknowledgments(t *testing.T) {
	store := newMockStore()
	id := uuid.New()
	_, _ = store.Record(context.Background(), &AcknowledgmentRecord{NotificationID: id, ChatID: 5})
	h := newTestHandler(store, newMockMessenger(), "")
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?notification_id="+id.String(), nil)
	rec := httptest.NewRecorder()
	if err := h.ListAcknowledgments(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	var items []AcknowledgmentRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ChatID != 5 {
		t.Errorf("unexpected items %+v", items)
	}

	req = httptest.NewRequest(http.MethodGet, "/?notification_id="+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	if err := h.ListAcknowledgments(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	err := h.ListAcknowledgments(e.NewContext(req, rec))
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing id, got %v", err)
	}
}
