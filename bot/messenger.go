package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/woltwatch/core/logger"
	"github.com/m3rciful/woltwatch/core/telegram/sender"
)

// ErrNotBound is returned when a send is attempted before Bind.
var ErrNotBound = errors.New("bot: messenger not bound")

type binding struct {
	bot  *tele.Bot
	disp *sender.Dispatcher
}

// Messenger delivers proactive texts (watcher notifications, flow replies) to
// a chat through the running bot. It is constructed before the bot exists and
// bound once the transport is up.
type Messenger struct {
	b atomic.Pointer[binding]
}

func NewMessenger() *Messenger {
	return &Messenger{}
}

// Bind attaches the live bot and outbound dispatcher. Safe to call again on
// reconnect; in-flight sends pick up the new binding.
func (m *Messenger) Bind(bot *tele.Bot, disp *sender.Dispatcher) {
	m.b.Store(&binding{bot: bot, disp: disp})
}

// Send delivers text to the chat, routed through the dispatcher when one is
// bound so Telegram flood limits are retried off the caller's goroutine.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) error {
	bind := m.b.Load()
	if bind == nil || bind.bot == nil {
		return ErrNotBound
	}

	run := func() error {
		_, err := bind.bot.Send(tele.ChatID(chatID), text)
		return err
	}

	if bind.disp == nil {
		return run()
	}
	if err := bind.disp.Enqueue(ctx, "send.text", run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.TG.Warn("queue fallback",
				slog.String("event", "queue.fallback"),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}
