// Package portfolio values a user's holdings against live quotes.
//
// Arithmetic runs on shopspring/decimal so that rendered amounts do not depend on float
// rounding or on the host locale. A symbol whose quote cannot be fetched is never fatal:
// each view decides whether to omit it or mark it unavailable.
package portfolio

import (
	"context"
	"time"

	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/types"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

var hundred = decimal.NewFromInt(100)

// Position is one holding valued at the current price.
type Position struct {
	Symbol        string
	Quantity      decimal.Decimal
	Cost          decimal.Decimal
	Price         decimal.Decimal
	Change24hPct  decimal.Decimal
	Value         decimal.Decimal
	ProfitLoss    decimal.Decimal
	ProfitLossPct decimal.Decimal
	DaysHeld      int
	Priced        bool
}

// Balance values every holding. Totals only include priced positions.
type Balance struct {
	Positions     []Position
	TotalValue    decimal.Decimal
	TotalCost     decimal.Decimal
	TotalPL       decimal.Decimal
	TotalPLPct    decimal.Decimal
	PricedSymbols int
}

// WeeklyLine compares the quantity held seven days ago with the current one, both at today's price.
type WeeklyLine struct {
	Symbol         string
	QuantityBefore decimal.Decimal
	QuantityNow    decimal.Decimal
	ValueBefore    decimal.Decimal
	ValueNow       decimal.Decimal
	Difference     decimal.Decimal
	DifferencePct  decimal.Decimal
	Priced         bool
}

// ReportLine is one symbol of a scheduled report.
type ReportLine struct {
	Symbol       string
	Value        decimal.Decimal
	Change       decimal.Decimal
	Change24hPct decimal.Decimal
}

// Report is the periodic summary: value now versus value 24 hours ago.
type Report struct {
	Lines        []ReportLine
	Total        decimal.Decimal
	Total24hAgo  decimal.Decimal
	Change24h    decimal.Decimal
	Change24hPct decimal.Decimal
	HasHoldings  bool
}

// percentOf returns part/whole*100, or zero when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func quote(ctx context.Context, prices price.Provider, symbol string) (price.Quote, bool) {
	q, err := prices.GetPrice(ctx, symbol)
	if err != nil {
		log.WithField("symbol", symbol).Warnf("price unavailable: %v", err)
		return price.Quote{}, false
	}
	return q, true
}

// ComputeBalance values holdings; today is used for days held.
func ComputeBalance(ctx context.Context, prices price.Provider, holdings []types.Holding, today time.Time) Balance {
	var b Balance
	todayDate := truncateDay(today)

	for _, h := range holdings {
		p := Position{
			Symbol:   h.Symbol,
			Quantity: decimal.NewFromFloat(h.Quantity),
			Cost:     decimal.NewFromFloat(h.Cost),
			DaysHeld: int(todayDate.Sub(truncateDay(h.FirstPurchase)).Hours() / 24),
		}

		if q, ok := quote(ctx, prices, h.Symbol); ok {
			p.Priced = true
			p.Price = decimal.NewFromFloat(q.PriceUSD)
			p.Change24hPct = decimal.NewFromFloat(q.PriceChange24h)
			p.Value = p.Quantity.Mul(p.Price)
			p.ProfitLoss = p.Value.Sub(p.Cost)
			p.ProfitLossPct = percentOf(p.ProfitLoss, p.Cost)

			b.TotalValue = b.TotalValue.Add(p.Value)
			b.TotalCost = b.TotalCost.Add(p.Cost)
			b.PricedSymbols++
		}
		b.Positions = append(b.Positions, p)
	}

	b.TotalPL = b.TotalValue.Sub(b.TotalCost)
	b.TotalPLPct = percentOf(b.TotalPL, b.TotalCost)
	return b
}

// ComputeWeekly values the quantity changes at current prices.
func ComputeWeekly(ctx context.Context, prices price.Provider, changes []types.QuantityChange) []WeeklyLine {
	lines := make([]WeeklyLine, 0, len(changes))
	for _, c := range changes {
		l := WeeklyLine{
			Symbol:         c.Symbol,
			QuantityBefore: decimal.NewFromFloat(c.Before),
			QuantityNow:    decimal.NewFromFloat(c.Now),
		}
		if q, ok := quote(ctx, prices, c.Symbol); ok {
			px := decimal.NewFromFloat(q.PriceUSD)
			l.Priced = true
			l.ValueBefore = l.QuantityBefore.Mul(px)
			l.ValueNow = l.QuantityNow.Mul(px)
			l.Difference = l.ValueNow.Sub(l.ValueBefore)
			l.DifferencePct = percentOf(l.Difference, l.ValueBefore)
		}
		lines = append(lines, l)
	}
	return lines
}

// ComputeReport builds the scheduled summary. Unpriced symbols are left out.
func ComputeReport(ctx context.Context, prices price.Provider, holdings []types.Holding) Report {
	r := Report{HasHoldings: len(holdings) > 0}

	for _, h := range holdings {
		q, ok := quote(ctx, prices, h.Symbol)
		if !ok {
			continue
		}

		value := decimal.NewFromFloat(h.Quantity).Mul(decimal.NewFromFloat(q.PriceUSD))
		pct := decimal.NewFromFloat(q.PriceChange24h)
		valueBefore := value

		// a -100% change has no meaningful previous value; treat it as unchanged
		if factor := decimal.NewFromInt(1).Add(pct.Div(hundred)); !factor.IsZero() {
			valueBefore = value.Div(factor)
		}

		r.Lines = append(r.Lines, ReportLine{
			Symbol:       h.Symbol,
			Value:        value,
			Change:       value.Sub(valueBefore),
			Change24hPct: pct,
		})
		r.Total = r.Total.Add(value)
		r.Total24hAgo = r.Total24hAgo.Add(valueBefore)
	}

	r.Change24h = r.Total.Sub(r.Total24hAgo)
	r.Change24hPct = percentOf(r.Change24h, r.Total24hAgo)
	return r
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
