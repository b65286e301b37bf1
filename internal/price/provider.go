package price

import (
	"context"
	"github.com/pkg/errors"
	"stock-alert-bot/internal/httpx"
	"time"
)

// ErrQuoteUnavailable is wrapped by every provider failure. Callers treat it as
// "no data this round" rather than a fault.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Quote is the normalized price returned by all providers.
type Quote struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	Currency   string    `json:"currency"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// Provider fetches the current price of a single symbol.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*Quote, error)
}

// Config selects and configures a Provider.
type Config struct {
	Name         string
	YahooBaseURL string
	APIKey       string
	HTTP         *httpx.Client
}

// New returns the provider named in cfg.
func New(cfg Config) (Provider, error) {
	switch cfg.Name {
	case "", "yahoo":
		return NewYahoo(cfg.YahooBaseURL, cfg.HTTP), nil
	case "coinpaprika":
		return NewCoinpaprika(cfg.HTTP, cfg.APIKey), nil
	}
	return nil, errors.Errorf("unknown quote provider %q", cfg.Name)
}

func unavailable(provider, symbol string, cause error) error {
	return errors.Wrapf(ErrQuoteUnavailable, "%s %s: %v", provider, symbol, cause)
}
