package price

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrSymbolNotFound means the feed answered but has no quote for the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrBadStatus means the feed answered with a non-success status.
	ErrBadStatus = errors.New("unexpected api status")
)

// Quote is the current USD price of a symbol and its 24h percent change.
type Quote struct {
	Symbol         string
	PriceUSD       float64
	PriceChange24h float64
}

// Provider fetches live quotes. Every call hits the feed; callers treat any error as
// "no price for this symbol right now".
type Provider interface {
	GetPrice(ctx context.Context, symbol string) (Quote, error)
}

// Config selects and configures a Provider.
type Config struct {
	Source  string // "coinmarketcap" or "coinpaprika"
	APIKey  string
	Timeout time.Duration
}

// NewProvider builds the provider named by c.Source.
func NewProvider(c Config) (Provider, error) {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: c.Timeout}

	switch strings.ToLower(c.Source) {
	case "", "coinmarketcap", "cmc":
		return NewCoinMarketCap(httpClient, c.APIKey), nil
	case "coinpaprika":
		return NewCoinPaprika(httpClient, c.APIKey), nil
	}
	return nil, errors.Errorf("unknown price source %q", c.Source)
}
