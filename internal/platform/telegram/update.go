package telegram

import (
	"encoding/json"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateKind classifies an inbound webhook update.
type UpdateKind int

const (
	UpdateIgnored UpdateKind = iota
	UpdateCommand
	UpdateCallback
)

// Inbound is the flattened part of an Update the relay acts on.
type Inbound struct {
	UpdateID int
	Kind     UpdateKind

	ChatID   int64
	Username string

	// Command is set for UpdateCommand, without the leading slash or @bot suffix.
	Command string

	// Callback fields, set for UpdateCallback. MessageID is zero for
	// inline-mode messages which carry no chat message.
	CallbackID string
	MessageID  int
	Data       string
}

// DecodeUpdate reads one webhook body.
func DecodeUpdate(r io.Reader) (Inbound, error) {
	var u tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&u); err != nil {
		return Inbound{}, fmt.Errorf("telegram: decode update: %w", err)
	}
	return Classify(u), nil
}

func Classify(u tgbotapi.Update) Inbound {
	in := Inbound{UpdateID: u.UpdateID}

	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		in.Kind = UpdateCallback
		in.CallbackID = cq.ID
		in.Data = cq.Data
		if cq.From != nil {
			in.ChatID = cq.From.ID
			in.Username = cq.From.UserName
		}
		if cq.Message != nil {
			in.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				in.ChatID = cq.Message.Chat.ID
			}
		}

	case u.Message != nil && u.Message.IsCommand():
		m := u.Message
		in.Kind = UpdateCommand
		in.Command = m.Command()
		if m.Chat != nil {
			in.ChatID = m.Chat.ID
		}
		if m.From != nil {
			in.Username = m.From.UserName
		}
	}

	return in
}
