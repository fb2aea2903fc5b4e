package relay

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestAcknowledge_EncodeDecodeRoundTrip(t *testing.T) {
	id := uuid.MustParse("6f1c1c5e-2b7a-4d55-9c0e-1f3c7f3b9a10")

	data, err := Acknowledge(id).Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if data != "ack:6f1c1c5e-2b7a-4d55-9c0e-1f3c7f3b9a10" {
		t.Errorf("unexpected payload %q", data)
	}
	if len(data) > MaxCallbackDataLen {
		t.Errorf("payload is %d bytes, limit %d", len(data), MaxCallbackDataLen)
	}

	action, err := DecodeAction(data)
	if err != nil {
		t.Fatalf("DecodeAction() error: %v", err)
	}
	if action.Kind != ActionAcknowledge || action.NotificationID != id {
		t.Errorf("unexpected action %+v", action)
	}
}

func TestEncode_Rejects(t *testing.T) {
	if _, err := Acknowledge(uuid.Nil).Encode(); err == nil {
		t.Error("expected error for nil notification id")
	}
	if _, err := (Action{Kind: ActionUnknown, Tag: "snooze"}).Encode(); err == nil {
		t.Error("expected error for unknown action")
	}
}

func TestDecodeAction_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"no separator", "ack"},
		{"empty tag", ":6f1c1c5e-2b7a-4d55-9c0e-1f3c7f3b9a10"},
		{"empty value", "ack:"},
		{"bad uuid", "ack:not-a-uuid"},
		{"nil uuid", "ack:00000000-0000-0000-0000-000000000000"},
		{"too long", "ack:" + strings.Repeat("a", MaxCallbackDataLen)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction(tt.data)
			if !errors.Is(err, ErrMalformedPayload) {
				t.Errorf("DecodeAction(%q) = %v, want ErrMalformedPayload", tt.data, err)
			}
		})
	}
}

func TestDecodeAction_UnknownTag(t *testing.T) {
	action, err := DecodeAction("snooze:15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Kind != ActionUnknown {
		t.Errorf("expected ActionUnknown, got %s", action.Kind)
	}
	if action.Tag != "snooze" {
		t.Errorf("expected tag snooze, got %q", action.Tag)
	}
}

func TestKind_ButtonLabel(t *testing.T) {
	if got := KindMedication.ButtonLabel(); got != "Принято ✓" {
		t.Errorf("medication label = %q", got)
	}
	if got := KindAppointment.ButtonLabel(); got != "Получено ✓" {
		t.Errorf("appointment label = %q", got)
	}
	if Kind("reminder").Valid() {
		t.Error("expected unknown kind to be invalid")
	}
}
