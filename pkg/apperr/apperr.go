// Package apperr holds the error shapes shared by the CRUD domains and their
// mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// ValidationError lists every field problem found in one request.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Checks accumulates field problems so a client sees all of them at once.
type Checks struct {
	fields []string
}

// Require records the message when ok is false.
func (c *Checks) Require(ok bool, format string, args ...interface{}) {
	if !ok {
		c.fields = append(c.fields, fmt.Sprintf(format, args...))
	}
}

// OneOf records an error when a non-empty value is not in allowed.
func (c *Checks) OneOf(field string, value *string, allowed map[string]bool) {
	if value == nil || *value == "" {
		return
	}
	c.Require(allowed[*value], "%s: invalid value %q", field, *value)
}

// TimeOfDay records an error when a non-empty value is not HH:MM or HH:MM:SS.
func (c *Checks) TimeOfDay(field string, value *string) {
	if Blank(value) {
		return
	}
	v := strings.TrimSpace(*value)
	_, err := time.Parse("15:04", v)
	if err != nil {
		_, err = time.Parse("15:04:05", v)
	}
	c.Require(err == nil, "%s: expected HH:MM, got %q", field, *value)
}

func (c *Checks) Err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields}
}

// Blank reports whether s is nil or only whitespace.
func Blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// HTTP converts a service error to an echo error: notFound becomes 404,
// validation 400, conflict 409 and anything else a bare 500.
func HTTP(err error, notFound error) *echo.HTTPError {
	var ve *ValidationError
	switch {
	case notFound != nil && errors.Is(err, notFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)).SetInternal(err)
	}
}

// ErrConflict marks writes rejected by a uniqueness or state rule.
var ErrConflict = errors.New("conflict")
