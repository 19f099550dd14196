package notify

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v3"
)

// TelegramSender delivers notifications to a Telegram chat.
type TelegramSender struct {
	bot    *tele.Bot
	chatID int64
}

// NewTelegramSender creates a Telegram sender for the given bot token and
// chat ID.
func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Offline: false,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}

	return &TelegramSender{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Send posts the message to the configured chat with the title in bold.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	text := fmt.Sprintf("*%s*\n%s", title, message)
	_, err := t.bot.Send(&tele.Chat{ID: t.chatID}, text, tele.ModeMarkdown)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
