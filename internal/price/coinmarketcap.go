package price

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const coinMarketCapURL = "https://pro-api.coinmarketcap.com/v1/cryptocurrency/quotes/latest"

// CoinMarketCap reads quotes from the CoinMarketCap pro API, converted to USD.
type CoinMarketCap struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewCoinMarketCap(client *http.Client, apiKey string) *CoinMarketCap {
	return &CoinMarketCap{client: client, baseURL: coinMarketCapURL, apiKey: apiKey}
}

type cmcResponse struct {
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
	Data map[string]struct {
		Symbol string `json:"symbol"`
		Quote  map[string]struct {
			Price            *float64 `json:"price"`
			PercentChange24h *float64 `json:"percent_change_24h"`
		} `json:"quote"`
	} `json:"data"`
}

// GetPrice fetches the latest USD quote for symbol.
func (c *CoinMarketCap) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(symbol)

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("convert", "USD")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Quote{}, errors.Wrap(err, "could not build quote request")
	}
	req.Header.Set("Accepts", "application/json")
	req.Header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, errors.Wrapf(err, "could not fetch quote for %s", symbol)
	}
	defer resp.Body.Close()

	var body cmcResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&body)

	if resp.StatusCode != http.StatusOK {
		log.Debugf("quote request for %s failed: %d %s", symbol, resp.StatusCode, body.Status.ErrorMessage)
		return Quote{}, errors.Wrapf(ErrBadStatus, "%s: status %d: %s", symbol, resp.StatusCode, body.Status.ErrorMessage)
	}
	if decodeErr != nil {
		return Quote{}, errors.Wrapf(decodeErr, "could not parse quote for %s", symbol)
	}

	data, ok := body.Data[symbol]
	if !ok {
		return Quote{}, errors.Wrap(ErrSymbolNotFound, symbol)
	}
	usd, ok := data.Quote["USD"]
	if !ok || usd.Price == nil {
		return Quote{}, errors.Wrapf(ErrSymbolNotFound, "%s has no USD price", symbol)
	}

	q := Quote{Symbol: symbol, PriceUSD: *usd.Price}
	if usd.PercentChange24h != nil {
		q.PriceChange24h = *usd.PercentChange24h
	}
	return q, nil
}
