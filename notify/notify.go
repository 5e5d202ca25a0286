// Package notify delivers operator alerts: trade confirmations, gateway
// escalations, halt notices.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type Notifier interface {
	Send(text string) error
	Sendf(format string, args ...any) error
}

// Log writes notifications to the structured log; the default when no
// Telegram credentials are configured.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("component", "notify").Logger()}
}

func (l *Log) Send(text string) error {
	l.log.Warn().Msg(text)
	return nil
}

func (l *Log) Sendf(format string, args ...any) error {
	return l.Send(fmt.Sprintf(format, args...))
}

// Telegram pushes notifications to a chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(text string) error {
	_, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text))
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (t *Telegram) Sendf(format string, args ...any) error {
	return t.Send(fmt.Sprintf(format, args...))
}
