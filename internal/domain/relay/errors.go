package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrRecipientNotFound means no active binding exists for the patient.
	// Nothing was sent.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrDeliveryFailed matches every *DeliveryError.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrPersistenceFailed matches every *PersistenceError.
	ErrPersistenceFailed = errors.New("persistence failed")

	// ErrInvalidJob wraps validation failures of a NotificationJob.
	ErrInvalidJob = errors.New("invalid notification job")

	// ErrMalformedPayload is returned for callback data that cannot be parsed.
	ErrMalformedPayload = errors.New("malformed callback payload")

	// ErrBindingNotFound is returned by directories for an unknown chat id.
	ErrBindingNotFound = errors.New("recipient binding not found")

	// ErrPatientAlreadyLinked is returned when linking a patient that is
	// already bound to a different chat.
	ErrPatientAlreadyLinked = errors.New("patient is already linked to another chat")

	// ErrUnknownPatient is returned when linking a patient id that has no
	// patient record.
	ErrUnknownPatient = errors.New("patient not found")
)

// DeliveryError carries the transport failure that stopped a send.
type DeliveryError struct {
	ChatID int64
	Cause  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to chat %d failed: %v", e.ChatID, e.Cause)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Cause}
}

// PersistenceError carries a data store failure and the operation that hit it.
type PersistenceError struct {
	Op    string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistenceFailed, e.Cause}
}

func invalidJob(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidJob, fmt.Sprintf(format, args...))
}
