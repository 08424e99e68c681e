package middleware

import (
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/woltwatch/core/logger"
)

// AccessOptions defines the static chat allow-list.
type AccessOptions struct {
	AllowedChats []int64
	// OnReject overrides the default "unrecognized user" reply.
	OnReject tele.HandlerFunc
}

// AllowListMiddleware drops updates from chats outside the allow-list,
// replying once with the chat id so the owner can grant access.
func AllowListMiddleware(opts AccessOptions) tele.MiddlewareFunc {
	allowed := make(map[int64]struct{}, len(opts.AllowedChats))
	for _, id := range opts.AllowedChats {
		allowed[id] = struct{}{}
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if _, ok := allowed[chat.ID]; ok {
				return next(c)
			}

			logger.TG.Info("unauthorized chat",
				slog.String("event", "tg.access"),
				slog.String("status", "skip"),
				slog.Int64("chat_id", chat.ID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return c.Send(fmt.Sprintf(
				"I'm sorry but you are currently an unrecognized user. To gain access to the bot "+
					"please ask the owner to add you to the allowed users. Your chat id is %d", chat.ID))
		}
	}
}
