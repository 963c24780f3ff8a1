package price

import (
	"context"
	"net/http"
	"strings"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CoinPaprika resolves a ticker symbol to a coinpaprika coin id and reads its USD quote.
// It needs no key; a pro key lifts the rate limit.
type CoinPaprika struct {
	client *coinpaprika.Client
}

func NewCoinPaprika(httpClient *http.Client, apiProKey string) *CoinPaprika {
	if apiProKey != "" {
		return &CoinPaprika{client: coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))}
	}
	return &CoinPaprika{client: coinpaprika.NewClient(httpClient)}
}

// GetPrice fetches the latest USD quote for symbol. The client has no context support, so
// cancellation relies on the http.Client timeout.
func (c *CoinPaprika) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	symbol = strings.ToUpper(symbol)
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}

	id, err := c.searchCoin(symbol)
	if err != nil {
		return Quote{}, err
	}

	ticker, err := c.client.Tickers.GetByID(id, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		return Quote{}, errors.Wrapf(err, "could not fetch ticker %s", id)
	}

	usd, ok := ticker.Quotes["USD"]
	if !ok || usd.Price == nil {
		return Quote{}, errors.Wrapf(ErrSymbolNotFound, "%s has no USD price", symbol)
	}

	q := Quote{Symbol: symbol, PriceUSD: *usd.Price}
	if usd.PercentChange24h != nil {
		q.PriceChange24h = *usd.PercentChange24h
	}
	return q, nil
}

// searchCoin returns the id of the first currency whose symbol matches exactly.
func (c *CoinPaprika) searchCoin(symbol string) (string, error) {
	result, err := c.client.Search.Search(&coinpaprika.SearchOptions{
		Query:      symbol,
		Categories: "currencies",
		Modifier:   "symbol_search",
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not search coin %s", symbol)
	}

	for _, coin := range result.Currencies {
		if coin.ID != nil && coin.Symbol != nil && strings.EqualFold(*coin.Symbol, symbol) {
			log.Debugf("Best match for symbol '%s' is: %s", symbol, *coin.ID)
			return *coin.ID, nil
		}
	}
	return "", errors.Wrap(ErrSymbolNotFound, symbol)
}
