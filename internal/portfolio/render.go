package portfolio

import (
	"fmt"
	"strings"

	"crypto-portfolio-bot/internal/types"
	"crypto-portfolio-bot/lib/helpers"
	"crypto-portfolio-bot/lib/translation"

	"github.com/shopspring/decimal"
)

// All renderers return MarkdownV2.

func t(msgID string, vars ...interface{}) string {
	return helpers.EscapeMarkdownV2(translation.Translate(msgID, vars...))
}

func money(d decimal.Decimal) string    { return helpers.FormatMoney(d) }
func quantity(d decimal.Decimal) string { return helpers.FormatQuantity(d) }

func RenderBalance(b Balance) string {
	if len(b.Positions) == 0 {
		return "📊 " + t("You have not added any transactions yet.")
	}

	var sb strings.Builder
	sb.WriteString("📊 " + helpers.Bold(t("Your crypto portfolio")) + "\n\n")

	for _, p := range b.Positions {
		if !p.Priced {
			sb.WriteString(t("%s: price unavailable", p.Symbol) + "\n\n")
			continue
		}
		sb.WriteString(helpers.Bold(helpers.EscapeMarkdownV2(p.Symbol)) + ":\n")
		sb.WriteString(t("Quantity: %s", quantity(p.Quantity)) + "\n")
		sb.WriteString(t("Current value: %s", money(p.Value)) + "\n")
		sb.WriteString(t("Current price: %s", money(p.Price)) + "\n")
		sb.WriteString(t("24h change: %s", helpers.FormatPercent(p.Change24hPct)) + "\n")
		sb.WriteString(t("Cost: %s", money(p.Cost)) + "\n")
		sb.WriteString(t("P/L: %s (%s)", money(p.ProfitLoss), helpers.FormatSignedPercent(p.ProfitLossPct)) + "\n")
		sb.WriteString(t("Days held: %d", p.DaysHeld) + "\n\n")
	}

	sb.WriteString(helpers.Bold("📈 "+t("Total portfolio performance")) + ":\n")
	sb.WriteString(helpers.Bold(t("Total value: %s", money(b.TotalValue))) + "\n")
	sb.WriteString(t("Total cost: %s", money(b.TotalCost)) + "\n")
	sb.WriteString(helpers.Bold(t("Total P/L: %s (%s)", money(b.TotalPL), helpers.FormatSignedPercent(b.TotalPLPct))))
	return sb.String()
}

func RenderProfit(b Balance) string {
	if len(b.Positions) == 0 {
		return t("You have not added any transactions yet.")
	}

	var sb strings.Builder
	sb.WriteString(t("Profit/Loss:") + "\n\n")
	for _, p := range b.Positions {
		if !p.Priced {
			sb.WriteString(t("%s: price unavailable", p.Symbol) + "\n\n")
			continue
		}
		sb.WriteString(helpers.EscapeMarkdownV2(p.Symbol) + ":\n")
		sb.WriteString("  " + t("Profit/Loss: %s", money(p.ProfitLoss)) + "\n")
		sb.WriteString("  " + t("Percentage: %s", helpers.FormatSignedPercent(p.ProfitLossPct)) + "\n\n")
	}
	sb.WriteString(t("Total profit/loss: %s", money(b.TotalPL)))
	return sb.String()
}

func RenderWeekly(lines []WeeklyLine) string {
	if len(lines) == 0 {
		return t("You do not have enough transactions for a weekly comparison.")
	}

	var sb strings.Builder
	sb.WriteString(t("Comparison with 7 days ago:") + "\n\n")
	for _, l := range lines {
		if !l.Priced {
			sb.WriteString(t("%s: price unavailable", l.Symbol) + "\n\n")
			continue
		}
		sb.WriteString(helpers.EscapeMarkdownV2(l.Symbol) + ":\n")
		sb.WriteString("  " + t("7 days ago: %s (%s)", quantity(l.QuantityBefore), money(l.ValueBefore)) + "\n")
		sb.WriteString("  " + t("Today: %s (%s)", quantity(l.QuantityNow), money(l.ValueNow)) + "\n")
		sb.WriteString("  " + t("Difference: %s (%s)", money(l.Difference), helpers.FormatSignedPercent(l.DifferencePct)) + "\n\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderHistory lists transactions oldest first; current is nil when no quote is available.
func RenderHistory(symbol string, txs []types.Transaction, current *decimal.Decimal) string {
	if len(txs) == 0 {
		return t("You have no transactions for %s.", symbol)
	}

	var sb strings.Builder
	sb.WriteString(t("Transaction history for %s:", symbol) + "\n\n")
	for _, tx := range txs {
		sb.WriteString(t("Date: %s, Quantity: %s, Price: %s",
			helpers.FormatDate(tx.Date),
			quantity(decimal.NewFromFloat(tx.Quantity)),
			money(decimal.NewFromFloat(tx.UnitPrice))) + "\n")
	}
	if current != nil {
		sb.WriteString("\n" + t("Current price of %s: %s", symbol, money(*current)))
	} else {
		sb.WriteString("\n" + t("The current price of %s is unavailable.", symbol))
	}
	return sb.String()
}

// RenderTransactionLine is the one-line form used in selection menus and the debug dump.
func RenderTransactionLine(tx types.Transaction) string {
	return fmt.Sprintf("%s - %s @ %s on %s",
		tx.Symbol,
		quantity(decimal.NewFromFloat(tx.Quantity)),
		money(decimal.NewFromFloat(tx.UnitPrice)),
		helpers.FormatDate(tx.Date))
}

func RenderDebug(txs []types.Transaction) string {
	if len(txs) == 0 {
		return t("There are no transactions in the database for this user.")
	}

	var sb strings.Builder
	sb.WriteString(t("Last %d transactions in the database:", len(txs)) + "\n\n")
	for _, tx := range txs {
		sb.WriteString(t("ID: %d, Symbol: %s, Quantity: %s, Price: %s, Date: %s",
			tx.ID, tx.Symbol,
			quantity(decimal.NewFromFloat(tx.Quantity)),
			money(decimal.NewFromFloat(tx.UnitPrice)),
			helpers.FormatDate(tx.Date)) + "\n")
	}
	return sb.String()
}

func RenderReport(r Report) string {
	if !r.HasHoldings {
		return t("You have no transactions in your portfolio.")
	}

	var sb strings.Builder
	sb.WriteString("📊 " + helpers.Bold(t("Portfolio summary")) + "\n\n")
	for _, l := range r.Lines {
		sb.WriteString(helpers.Bold(helpers.EscapeMarkdownV2(l.Symbol)) + ": " +
			helpers.EscapeMarkdownV2(fmt.Sprintf("%s (%s, %s)", money(l.Value), money(l.Change), helpers.FormatPercent(l.Change24hPct))) + "\n")
	}
	sb.WriteString("\n" + helpers.Bold(t("Total: %s", money(r.Total))) + "\n")
	sb.WriteString(t("24h change: %s (%s)", money(r.Change24h), helpers.FormatPercent(r.Change24hPct)))
	return sb.String()
}
