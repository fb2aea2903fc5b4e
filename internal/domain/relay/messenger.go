package relay

import (
	"context"

	"github.com/krauzhul/VoyagMED/internal/platform/telegram"
)

// Messenger is the outbound chat capability. *telegram.Client implements it.
type Messenger interface {
	SendWithAction(ctx context.Context, chatID int64, text string, button telegram.Button) (telegram.SentMessage, error)
	SendText(ctx context.Context, chatID int64, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	ClearActions(ctx context.Context, chatID int64, messageID int) error
}

var _ Messenger = (*telegram.Client)(nil)
