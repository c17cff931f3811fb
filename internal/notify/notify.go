// Package notify delivers recommendation texts to Telegram chats and e-mail
// inboxes.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gopkg.in/gomail.v2"

	"tomanage/internal/models"
)

type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelEmail    Channel = "email"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelTelegram, ChannelEmail:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown delivery channel %q", models.ErrValidation, s)
}

// Notifier sends one message to a recipient address of its channel.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, recipient, subject, text string) error
}

// Telegram sends through the Bot API. The bot is created on first use since
// creating it performs a network call.
type Telegram struct {
	token    string
	endpoint string

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string) *Telegram {
	return NewTelegramWithEndpoint(token, tgbotapi.APIEndpoint)
}

// NewTelegramWithEndpoint points the bot at another API host; endpoint uses the
// library's "%s/%s" token and method placeholders.
func NewTelegramWithEndpoint(token, endpoint string) *Telegram {
	return &Telegram{token: token, endpoint: endpoint}
}

func (t *Telegram) Enabled() bool { return t != nil && t.token != "" }

func (t *Telegram) client() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(t.token, t.endpoint)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Notify(ctx context.Context, recipient, subject, text string) error {
	if !t.Enabled() {
		return fmt.Errorf("%w: telegram delivery is not configured", models.ErrValidation)
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(recipient), 10, 64)
	if err != nil || chatID == 0 {
		return fmt.Errorf("%w: invalid telegram chat id %q", models.ErrValidation, recipient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	bot, err := t.client()
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", models.ErrExternalService, err)
	}

	body := text
	if subject != "" {
		body = subject + "\n\n" + text
	}
	msg := tgbotapi.NewMessage(chatID, body)
	msg.DisableWebPagePreview = true
	if _, err := bot.Send(msg); err != nil {
		log.Printf("[notify][telegram][err] chat=%d err=%v", chatID, err)
		return fmt.Errorf("%w: telegram send: %v", models.ErrExternalService, err)
	}
	log.Printf("[notify][telegram] sent chat=%d", chatID)
	return nil
}

// Email sends through SMTP.
type Email struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmail(host string, port int, user, password, from string) *Email {
	if host == "" {
		return &Email{from: from}
	}
	return &Email{dialer: gomail.NewDialer(host, port, user, password), from: from}
}

func (e *Email) Enabled() bool { return e != nil && e.dialer != nil && e.from != "" }

func (e *Email) Notify(ctx context.Context, recipient, subject, text string) error {
	if !e.Enabled() {
		return fmt.Errorf("%w: email delivery is not configured", models.ErrValidation)
	}
	if !strings.Contains(recipient, "@") {
		return fmt.Errorf("%w: invalid email address %q", models.ErrValidation, recipient)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", text)
	m.AddAlternative("text/html", "<pre style=\"font-family: sans-serif; white-space: pre-wrap\">"+html.EscapeString(text)+"</pre>")

	if err := e.dialer.DialAndSend(m); err != nil {
		log.Printf("[notify][email][err] to=%s err=%v", recipient, err)
		return fmt.Errorf("%w: send email: %v", models.ErrExternalService, err)
	}
	return nil
}
