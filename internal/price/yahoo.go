package price

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"net/http"
	"net/url"
	"stock-alert-bot/internal/httpx"
	"strings"
	"time"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	yahooUserAgent      = "Mozilla/5.0"
)

// Yahoo reads regularMarketPrice from the keyless Yahoo Finance quote endpoint.
type Yahoo struct {
	baseURL string
	client  *httpx.Client
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			Currency           string   `json:"currency"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func NewYahoo(baseURL string, client *httpx.Client) *Yahoo {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	if client == nil {
		client = httpx.New(10 * time.Second)
	}
	return &Yahoo{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (y *Yahoo) Name() string { return "yahoo" }

func (y *Yahoo) Quote(ctx context.Context, symbol string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", y.baseURL, url.QueryEscape(symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, unavailable(y.Name(), symbol, err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, unavailable(y.Name(), symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable(y.Name(), symbol, errors.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, unavailable(y.Name(), symbol, errors.Wrap(err, "decode response"))
	}

	if len(body.QuoteResponse.Result) == 0 {
		return nil, unavailable(y.Name(), symbol, errors.New("no result"))
	}
	result := body.QuoteResponse.Result[0]
	if result.RegularMarketPrice == nil {
		return nil, unavailable(y.Name(), symbol, errors.New("no regularMarketPrice"))
	}

	log.Debugf("yahoo quote %s = %f %s", symbol, *result.RegularMarketPrice, result.Currency)

	return &Quote{
		Symbol:     symbol,
		Price:      *result.RegularMarketPrice,
		Currency:   result.Currency,
		Source:     y.Name(),
		ReceivedAt: time.Now(),
	}, nil
}
