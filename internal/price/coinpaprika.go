package price

import (
	"context"
	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"stock-alert-bot/internal/httpx"
	"strings"
	"time"
)

// Coinpaprika quotes crypto tickers in USD. It is the keyed provider: the
// pro API is used when an API key is configured.
type Coinpaprika struct {
	client *coinpaprika.Client
}

func NewCoinpaprika(client *httpx.Client, apiProKey string) *Coinpaprika {
	var hc *http.Client
	if client != nil {
		hc = client.HTTP
	}
	if apiProKey != "" {
		return &Coinpaprika{client: coinpaprika.NewClient(hc, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &Coinpaprika{client: coinpaprika.NewClient(hc)}
}

func (c *Coinpaprika) Name() string { return "coinpaprika" }

func (c *Coinpaprika) Quote(ctx context.Context, symbol string) (*Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(c.Name(), symbol, err)
	}

	coin, err := c.searchCoin(symbol)
	if err != nil {
		return nil, unavailable(c.Name(), symbol, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, unavailable(c.Name(), symbol, err)
	}

	ticker, err := c.client.Tickers.GetByID(*coin.ID, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return nil, unavailable(c.Name(), symbol, errors.Wrapf(err, "ticker %s", *coin.ID))
	}

	usd, ok := ticker.Quotes["USD"]
	if !ok || usd.Price == nil {
		return nil, unavailable(c.Name(), symbol, errors.Errorf("no USD price for %s", *coin.ID))
	}

	return &Quote{
		Symbol:     symbol,
		Price:      *usd.Price,
		Currency:   "USD",
		Source:     c.Name(),
		ReceivedAt: time.Now(),
	}, nil
}

// searchCoin returns the coin whose symbol equals query. Results that only
// resemble the query are not a quote for it.
func (c *Coinpaprika) searchCoin(query string) (*coinpaprika.Coin, error) {
	searchOpts := &coinpaprika.SearchOptions{
		Query:      query,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := c.client.Search.Search(searchOpts)
	if err != nil || len(result.Currencies) == 0 {
		log.Debugf("no results for symbol search, trying name search for '%s'", query)
		searchOpts = &coinpaprika.SearchOptions{Query: query, Categories: "currencies"}
		result, err = c.client.Search.Search(searchOpts)
		if err != nil || len(result.Currencies) == 0 {
			return nil, errors.Errorf("no coin found for %s", query)
		}
	}

	for _, coin := range result.Currencies {
		if coin.ID != nil && coin.Symbol != nil && strings.EqualFold(*coin.Symbol, query) {
			return coin, nil
		}
	}
	return nil, errors.Errorf("no coin with symbol %s among %d result(s)", query, len(result.Currencies))
}
