package middleware

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/woltwatch/core/logger"
	tghelpers "github.com/m3rciful/woltwatch/core/telegram/helpers"
)

// LoggerMiddleware logs a single receipt line per update and seeds the
// request id used by downstream handlers.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		user := c.Sender()
		chat := c.Chat()

		chatID, userID := int64(0), int64(0)
		if chat != nil {
			chatID = chat.ID
		}
		if user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		tghelpers.StoreContext(c, logger.WithRID(tghelpers.BuildContext(c), rid))

		attrs := []any{
			slog.String("event", "update.received"),
			slog.String("rid", rid),
			slog.Int("update_id", upd.ID),
		}
		if chatID != 0 {
			attrs = append(attrs, slog.Int64("chat_id", chatID))
		}
		if userID != 0 {
			attrs = append(attrs, slog.Int64("user_id", userID))
		}
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
		logger.TG.Debug("update received", attrs...)

		start := time.Now()
		err := next(c)
		logger.TG.Info("update handled",
			slog.String("event", "update.handled"),
			slog.String("status", logger.Status(err)),
			slog.String("rid", rid),
			slog.Duration("duration", logger.Took(start)),
		)
		return err
	}
}
