package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Console prints notifications to a writer.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole returns a sender writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Send implements Sender.
func (c *Console) Send(_ context.Context, n Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "🔔 %s\n   %s\n", n.Title, n.Body)
	return err
}

// Telegram delivers notifications as bot messages to one chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram connects to the Bot API with token.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// NewTelegramWithClient connects through a custom endpoint and HTTP client.
// endpoint follows the tgbotapi format, e.g. "https://host/bot%s/%s".
func NewTelegramWithClient(token, endpoint string, client *http.Client, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

// Send implements Sender.
func (t *Telegram) Send(_ context.Context, n Notification) error {
	msg := tgbotapi.NewMessage(t.chatID, n.Title+"\n"+n.Body)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
