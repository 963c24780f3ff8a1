package portfolio

import (
	"context"
	"strings"
	"testing"
	"time"

	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrices map[string]price.Quote

func (s stubPrices) GetPrice(_ context.Context, symbol string) (price.Quote, error) {
	q, ok := s[symbol]
	if !ok {
		return price.Quote{}, price.ErrSymbolNotFound
	}
	return q, nil
}

func plain(markdown string) string {
	return strings.ReplaceAll(markdown, `\`, "")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBalanceScenario(t *testing.T) {
	prices := stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 35000, PriceChange24h: 5}}
	holdings := []types.Holding{{Symbol: "BTC", Quantity: 0.1, Cost: 0.1 * 30000, FirstPurchase: day(2023, 12, 25)}}

	b := ComputeBalance(context.Background(), prices, holdings, day(2024, 1, 4))
	require.Len(t, b.Positions, 1)
	assert.Equal(t, 10, b.Positions[0].DaysHeld)

	out := plain(RenderBalance(b))
	assert.Contains(t, out, "Quantity: 0.1000")
	assert.Contains(t, out, "Current value: $3500.00")
	assert.Contains(t, out, "Cost: $3000.00")
	assert.Contains(t, out, "P/L: $500.00 (+16.67%)")
	assert.Contains(t, out, "Total value: $3500.00")
}

func TestBalanceSkipsUnpricedInTotals(t *testing.T) {
	prices := stubPrices{"ETH": {Symbol: "ETH", PriceUSD: 2000}}
	holdings := []types.Holding{
		{Symbol: "BTC", Quantity: 1, Cost: 30000, FirstPurchase: day(2024, 1, 1)},
		{Symbol: "ETH", Quantity: 2, Cost: 3000, FirstPurchase: day(2024, 1, 1)},
	}

	b := ComputeBalance(context.Background(), prices, holdings, day(2024, 1, 2))
	assert.Equal(t, 1, b.PricedSymbols)
	assert.True(t, b.TotalCost.Equal(decimal.NewFromInt(3000)))
	assert.True(t, b.TotalValue.Equal(decimal.NewFromInt(4000)))
	assert.Contains(t, plain(RenderBalance(b)), "BTC: price unavailable")
	assert.Contains(t, plain(RenderProfit(b)), "Total profit/loss: $1000.00")
}

func TestBalanceWithNothingPricedDoesNotDivideByZero(t *testing.T) {
	holdings := []types.Holding{{Symbol: "BTC", Quantity: 1, Cost: 1, FirstPurchase: day(2024, 1, 1)}}
	b := ComputeBalance(context.Background(), stubPrices{}, holdings, day(2024, 1, 1))
	assert.True(t, b.TotalPLPct.IsZero())
	assert.Contains(t, plain(RenderBalance(b)), "Total P/L: $0.00 (+0.00%)")
}

func TestWeeklyGuardsZeroBaseline(t *testing.T) {
	prices := stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 35000}}
	changes := []types.QuantityChange{{Symbol: "BTC", Before: 0, Now: 0.5}}

	lines := ComputeWeekly(context.Background(), prices, changes)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].QuantityBefore.IsZero())
	assert.True(t, lines[0].DifferencePct.IsZero())

	out := plain(RenderWeekly(lines))
	assert.Contains(t, out, "7 days ago: 0.0000 ($0.00)")
	assert.Contains(t, out, "Today: 0.5000 ($17500.00)")
	assert.Contains(t, out, "Difference: $17500.00 (+0.00%)")
}

func TestReportValue24hAgo(t *testing.T) {
	prices := stubPrices{
		"BTC": {Symbol: "BTC", PriceUSD: 110, PriceChange24h: 10},
		"DOA": {Symbol: "DOA", PriceUSD: 1, PriceChange24h: -100},
	}
	holdings := []types.Holding{
		{Symbol: "BTC", Quantity: 1},
		{Symbol: "DOA", Quantity: 5},
		{Symbol: "GONE", Quantity: 1},
	}

	r := ComputeReport(context.Background(), prices, holdings)
	require.Len(t, r.Lines, 2, "unpriced symbols are omitted")
	assert.Equal(t, "10.00", r.Lines[0].Change.StringFixed(2))
	assert.True(t, r.Lines[1].Change.IsZero())
	assert.Equal(t, "115.00", r.Total.StringFixed(2))
	assert.Equal(t, "105.00", r.Total24hAgo.StringFixed(2))

	out := plain(RenderReport(r))
	assert.Contains(t, out, "BTC*: $110.00 ($10.00, 10.00%)")
	assert.Contains(t, out, "Total: $115.00")
	assert.NotContains(t, out, "GONE")
}

func TestReportWithoutHoldings(t *testing.T) {
	r := ComputeReport(context.Background(), stubPrices{}, nil)
	assert.Equal(t, "You have no transactions in your portfolio.", plain(RenderReport(r)))
}

func TestRenderHistory(t *testing.T) {
	txs := []types.Transaction{
		{Symbol: "BTC", Quantity: 0.1, UnitPrice: 30000, Date: day(2023, 12, 25)},
	}
	current := decimal.NewFromInt(35000)

	out := plain(RenderHistory("BTC", txs, &current))
	assert.Contains(t, out, "Date: 25-12-2023, Quantity: 0.1000, Price: $30000.00")
	assert.Contains(t, out, "Current price of BTC: $35000.00")

	out = plain(RenderHistory("BTC", txs, nil))
	assert.Contains(t, out, "The current price of BTC is unavailable.")

	assert.Equal(t, "You have no transactions for ETH.", plain(RenderHistory("ETH", nil, nil)))
}
