// Package notify delivers out-of-band user notifications. The only current
// channel is a Telegram bot used for pomodoro expiry pings.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram sends notifications to a fixed chat through a bot. Sends run in a
// goroutine and never block the caller; failures are logged and dropped.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegram connects the bot. An empty token disables the channel and
// returns (nil, nil); a nil *Telegram is a safe no-op notifier.
func NewTelegram(token string, chatID int64, logger *zap.Logger) (*Telegram, error) {
	if token == "" {
		return nil, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	logger.Info("telegram notifications enabled",
		zap.String("bot", bot.Self.UserName), zap.Int64("chat_id", chatID))
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

// TimerExpired announces a finished pomodoro.
func (t *Telegram) TimerExpired(owner, task string) {
	if t == nil {
		return
	}
	text := "Pomodoro finished"
	if task != "" {
		text = fmt.Sprintf("Pomodoro finished: %s", task)
	}
	go t.send(text)
}

func (t *Telegram) send(text string) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Warn("telegram send failed", zap.Error(err))
	}
}
