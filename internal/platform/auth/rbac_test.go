package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func runWithRoles(t *testing.T, roles []string, mw echo.MiddlewareFunc) (error, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if roles != nil {
		req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, roles))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	return mw(handler)(c), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	err, rec := runWithRoles(t, []string{RoleManager}, RequireRole(Writers...))
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_AdminAlwaysAllowed(t *testing.T) {
	err, _ := runWithRoles(t, []string{RoleAdmin}, RequireRole(RoleViewer))
	if err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
	}{
		{"viewer on write route", []string{RoleViewer}},
		{"no roles", []string{}},
		{"no identity", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err, _ := runWithRoles(t, tt.roles, RequireRole(Writers...))
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T", err)
			}
			if httpErr.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", httpErr.Code)
			}
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	if !HasAnyRole([]string{RoleViewer}, Readers...) {
		t.Error("expected viewer to be a reader")
	}
	if HasAnyRole([]string{RoleViewer}, Writers...) {
		t.Error("expected viewer not to be a writer")
	}
}
