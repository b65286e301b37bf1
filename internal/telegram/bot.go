package telegram

import (
	"context"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
)

// NewBot creates new telegram bot. The token is verified with getMe, so a bad
// token fails here rather than on the first alert.
func NewBot(c BotConfig) (*Bot, error) {
	if c.APIEndpoint == "" {
		c.APIEndpoint = tgbotapi.APIEndpoint
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}

	bot, err := tgbotapi.NewBotAPIWithClient(c.Token, c.APIEndpoint, c.HTTPClient)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug
	log.Infof("Authorized on telegram account %s", bot.Self.UserName)

	return &Bot{
		Bot:    bot,
		Config: c,
	}, nil
}

// Notify sends text to the configured chat.
func (b *Bot) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "notification cancelled")
	}
	return b.SendMessage(Message{
		ChatID: b.Config.ChatID,
		Text:   text,
	})
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	_, err := b.Bot.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}
