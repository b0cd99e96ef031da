package telegram

import (
	"context"
	"errors"
	"fmt"

	"CaseLifecycle/internal/notify"

	"github.com/go-telegram/bot"
)

// Notifier posts lifecycle events to the staff chats.
type Notifier struct {
	api     api
	chatIDs []int64
}

// Notifier returns a notifier that shares the bot's connection.
func (caseBot *Bot) Notifier() *Notifier {
	return &Notifier{api: caseBot.api, chatIDs: caseBot.cfg.BotConfig.StaffChatIDs}
}

// Notify sends e to every staff chat.
func (n *Notifier) Notify(ctx context.Context, e notify.Event) error {
	op := "telegram.Notify"
	if len(n.chatIDs) == 0 {
		return nil
	}

	text := formatEvent(e)
	var errs []error
	for _, chatID := range n.chatIDs {
		if _, err := n.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			errs = append(errs, fmt.Errorf("%s: chat %d: %w", op, chatID, err))
		}
	}
	return errors.Join(errs...)
}
