package alert

import (
	"context"
	"stock-alert-bot/internal/price"
)

//go:generate mockgen -package=alert_test -destination=mock_deps_test.go -source=deps.go

// QuoteProvider fetches the current price of one symbol. Any error means
// "no data this round".
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*price.Quote, error)
}

// Notifier delivers a pre-formatted MarkdownV2 message.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}
