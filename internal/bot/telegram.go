package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeout = 60

// Bot long-polls Telegram and hands each message to a Handler.
type Bot struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

// New connects to the Telegram Bot API with token.
func New(token string, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	log.Info("telegram bot authorized", "username", api.Self.UserName)
	return &Bot{api: api, log: log}, nil
}

// Send implements Sender.
func (b *Bot) Send(chatID int64, text string, markdown bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("sending message to chat %d: %w", chatID, err)
	}
	return nil
}

// Run polls for updates until ctx is cancelled, then waits for in-flight
// messages to finish.
func (b *Bot) Run(ctx context.Context, h *Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	b.log.Info("telegram polling started")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("telegram polling stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			m, ok := messageFrom(upd)
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				h.Handle(ctx, m)
			}()
		}
	}
}

// messageFrom extracts a text message from an update.
func messageFrom(upd tgbotapi.Update) (Message, bool) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		return Message{}, false
	}
	m := Message{
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if msg.From != nil {
		m.UserID = msg.From.ID
		m.DisplayName = strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		if m.DisplayName == "" {
			m.DisplayName = msg.From.UserName
		}
	}
	if msg.IsCommand() {
		m.Command = msg.Command()
	}
	return m, true
}
