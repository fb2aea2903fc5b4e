package relay

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxCallbackDataLen is Telegram's limit on callback_data, in bytes.
const MaxCallbackDataLen = 64

const (
	payloadSeparator = ":"
	tagAcknowledge   = "ack"
)

type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionAcknowledge
)

func (k ActionKind) String() string {
	if k == ActionAcknowledge {
		return tagAcknowledge
	}
	return "unknown"
}

// Action is the decoded form of a button's callback data.
type Action struct {
	Kind           ActionKind
	NotificationID uuid.UUID
	// Tag is the raw tag, kept for logging unknown actions.
	Tag string
}

func Acknowledge(notificationID uuid.UUID) Action {
	return Action{Kind: ActionAcknowledge, NotificationID: notificationID, Tag: tagAcknowledge}
}

// Encode renders the action as "<tag>:<id>".
func (a Action) Encode() (string, error) {
	if a.Kind != ActionAcknowledge {
		return "", fmt.Errorf("encode callback payload: unsupported action %q", a.Tag)
	}
	if a.NotificationID == uuid.Nil {
		return "", fmt.Errorf("encode callback payload: empty notification id")
	}
	data := tagAcknowledge + payloadSeparator + a.NotificationID.String()
	if len(data) > MaxCallbackDataLen {
		return "", fmt.Errorf("encode callback payload: %d bytes exceeds %d", len(data), MaxCallbackDataLen)
	}
	return data, nil
}

// DecodeAction parses callback data. A well-formed payload with an unknown
// tag decodes to ActionUnknown without error; anything that does not have
// the "<tag>:<value>" shape, or an ack whose id is not a UUID, is
// ErrMalformedPayload.
func DecodeAction(data string) (Action, error) {
	if len(data) > MaxCallbackDataLen {
		return Action{}, fmt.Errorf("%w: %d bytes", ErrMalformedPayload, len(data))
	}
	tag, value, ok := strings.Cut(data, payloadSeparator)
	if !ok || tag == "" || value == "" {
		return Action{}, fmt.Errorf("%w: %q", ErrMalformedPayload, data)
	}

	if tag != tagAcknowledge {
		return Action{Kind: ActionUnknown, Tag: tag}, nil
	}

	id, err := uuid.Parse(value)
	if err != nil || id == uuid.Nil {
		return Action{}, fmt.Errorf("%w: bad notification id %q", ErrMalformedPayload, value)
	}
	return Acknowledge(id), nil
}
