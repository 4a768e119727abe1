package notification

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier шлёт уведомления в рабочий чат персонала.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	if token == "" {
		logger.Warn("telegram bot token is empty, notifications disabled")
		return &TelegramNotifier{bot: nil, logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg Message) error {
	if n.bot == nil {
		n.logger.Debug("notification skipped (bot disabled)", slog.String("title", msg.Title))
		return nil
	}

	if n.chatID == 0 {
		n.logger.Debug("notification skipped (no chat_id)", slog.String("title", msg.Title))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tgMsg := tgbotapi.NewMessage(n.chatID, formatTelegram(msg))
	tgMsg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(tgMsg); err != nil {
		return fmt.Errorf("send telegram notification: %w", err)
	}
	return nil
}

func formatTelegram(msg Message) string {
	text := "*" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg.Title) + "*"
	if msg.Code != "" {
		text += "\n\nБронь: " + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg.Code)
	}
	if msg.Body != "" {
		text += "\n" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg.Body)
	}
	return text
}
