package telegram

import tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

// BotConfig configuration of the bot
type BotConfig struct {
	Token  string
	ChatID int64
	// APIEndpoint is a format string taking the token and method, see tgbotapi.APIEndpoint.
	APIEndpoint string
	Debug       bool
	HTTPClient  tgbotapi.HTTPClient
}

// Bot delivers alert notifications to a single configured chat
type Bot struct {
	Bot    *tgbotapi.BotAPI
	Config BotConfig
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
