// Package bot binds the conversation flow to telebot endpoints.
package bot

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/woltwatch/core/telegram"
	"github.com/m3rciful/woltwatch/core/telegram/helpers"
	"github.com/m3rciful/woltwatch/flow"
)

// Routes binds flow handlers to bot endpoints.
func Routes(f *flow.Flow) []telegram.Route {
	return []telegram.Route{
		{Endpoint: "/start", Handler: command(f.HandleStart)},
		{Endpoint: "/help", Handler: command(f.HandleHelp)},
		{Endpoint: "/cancel", Handler: command(f.HandleCancel)},
		{Endpoint: "/id", Handler: handleID},
		{Endpoint: tele.OnText, Handler: onText(f)},
	}
}

// Commands is the Telegram command menu.
func Commands() []tele.Command {
	return []tele.Command{
		{Text: "start", Description: "Start a new venue search"},
		{Text: "cancel", Description: "Stop watching the current venue"},
		{Text: "help", Description: "How this bot works"},
		{Text: "id", Description: "Show this chat's id"},
	}
}

func command(h func(ctx context.Context, chatID int64) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		return h(helpers.BuildContext(c), chat.ID)
	}
}

func onText(f *flow.Flow) tele.HandlerFunc {
	return func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		text := strings.TrimSpace(c.Text())
		if text == "" || strings.HasPrefix(text, "/") {
			return nil
		}
		return f.HandleText(helpers.BuildContext(c), chat.ID, text)
	}
}

func handleID(c tele.Context) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	return helpers.SendText(c, fmt.Sprintf("Your chat id is %d", chat.ID))
}
