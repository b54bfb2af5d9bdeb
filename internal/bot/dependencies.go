package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
