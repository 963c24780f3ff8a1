package commands

import (
	"context"
	"fmt"
	"strings"

	"crypto-portfolio-bot/internal/chart"
	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/portfolio"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/lib/helpers"
	"crypto-portfolio-bot/lib/translation"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func transactionFormat() string {
	return t("Use the format: SYMBOL PRICE QUANTITY DD-MM-YYYY (e.g. BTC 30000 0.1 25-12-2023)")
}

func (d *Dispatcher) commandAdd(ctx context.Context, userID int64, args string) Response {
	if args != "" {
		return d.addTransaction(ctx, userID, args)
	}
	d.sessions.Await(userID, conversation.AwaitingTransaction)
	return reply("📝 " + t("Enter the transaction.") + "\n" + transactionFormat())
}

func (d *Dispatcher) addTransaction(ctx context.Context, userID int64, line string) Response {
	tx, err := ParseTransactionLine(line)
	if err != nil {
		log.WithField("user_id", userID).Debugf("rejected transaction %q: %v", line, err)
		return reply("❌ " + t("Invalid transaction.") + "\n" + transactionFormat())
	}

	tx.UserID = userID
	if tx.ID, err = d.store.InsertTransaction(ctx, tx); err != nil {
		return d.internalError(err, userID, "Failed to insert transaction")
	}
	return reply("✅ " + t("Transaction added: %s", portfolio.RenderTransactionLine(tx)))
}

func (d *Dispatcher) commandAddMultiple(userID int64) Response {
	d.sessions.Await(userID, conversation.AwaitingBulk)
	return reply("📝 " + t("Send one transaction per line.") + "\n" + transactionFormat() + "\n" +
		t("When you are done, send FINE or DONE."))
}

// addBatch commits every valid line of one message and reports the rest. A sentinel line ends the session
// after the lines before it are processed.
func (d *Dispatcher) addBatch(ctx context.Context, userID int64, text string) Response {
	var (
		added   int
		invalid []string
		done    bool
	)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if IsBulkSentinel(line) {
			done = true
			break
		}

		tx, err := ParseTransactionLine(line)
		if err != nil {
			invalid = append(invalid, line)
			continue
		}
		tx.UserID = userID
		if _, err := d.store.InsertTransaction(ctx, tx); err != nil {
			log.WithField("user_id", userID).Errorf("❌ Failed to insert transaction %q: %v", line, err)
			invalid = append(invalid, line)
			continue
		}
		added++
	}

	var sb strings.Builder
	if added > 0 || len(invalid) > 0 {
		sb.WriteString("✅ " + t("%d transactions added.", added))
	}
	if len(invalid) > 0 {
		sb.WriteString("\n\n⚠️ " + t("These lines were not valid and were skipped:") + "\n")
		for _, line := range invalid {
			sb.WriteString(helpers.EscapeMarkdownV2(line) + "\n")
		}
		sb.WriteString(transactionFormat())
	}

	if done {
		d.sessions.Reset(userID)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(t("Bulk entry finished."))
		return reply(sb.String())
	}

	d.sessions.Await(userID, conversation.AwaitingBulk)
	sb.WriteString("\n\n" + t("Send more transactions, or FINE or DONE to finish."))
	return reply(strings.TrimLeft(sb.String(), "\n"))
}

func (d *Dispatcher) balance(ctx context.Context, userID int64) (portfolio.Balance, error) {
	holdings, err := d.store.Holdings(ctx, userID)
	if err != nil {
		return portfolio.Balance{}, err
	}
	return portfolio.ComputeBalance(ctx, price.NewSweepCache(d.prices), holdings, d.today()), nil
}

func (d *Dispatcher) commandBalance(ctx context.Context, userID int64) Response {
	b, err := d.balance(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to load holdings")
	}
	return reply(portfolio.RenderBalance(b))
}

func (d *Dispatcher) commandProfit(ctx context.Context, userID int64) Response {
	b, err := d.balance(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to load holdings")
	}
	return reply(portfolio.RenderProfit(b))
}

func (d *Dispatcher) commandWeekly(ctx context.Context, userID int64) Response {
	changes, err := d.store.QuantityChanges(ctx, userID, d.today().AddDate(0, 0, -7))
	if err != nil {
		return d.internalError(err, userID, "Failed to load quantity changes")
	}
	return reply(portfolio.RenderWeekly(portfolio.ComputeWeekly(ctx, price.NewSweepCache(d.prices), changes)))
}

func (d *Dispatcher) commandHistory(ctx context.Context, userID int64, args string) Response {
	fields := strings.Fields(args)
	if len(fields) != 1 {
		return reply(t("Usage: /history SYMBOL"))
	}
	symbol := strings.ToUpper(fields[0])

	txs, err := d.store.ListTransactions(ctx, userID, symbol)
	if err != nil {
		return d.internalError(err, userID, "Failed to load history")
	}
	if len(txs) == 0 {
		return reply(portfolio.RenderHistory(symbol, nil, nil))
	}

	var current *decimal.Decimal
	if q, err := d.prices.GetPrice(ctx, symbol); err != nil {
		log.WithField("symbol", symbol).Warnf("price unavailable: %v", err)
	} else {
		p := decimal.NewFromFloat(q.PriceUSD)
		current = &p
	}
	return reply(portfolio.RenderHistory(symbol, txs, current))
}

func (d *Dispatcher) commandDebug(ctx context.Context, userID int64) Response {
	txs, err := d.store.RecentTransactions(ctx, userID, recentForDebug)
	if err != nil {
		return d.internalError(err, userID, "Failed to load transactions")
	}
	return reply(portfolio.RenderDebug(txs))
}

func (d *Dispatcher) commandChart(ctx context.Context, userID int64) Response {
	b, err := d.balance(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to load holdings")
	}
	if len(b.Positions) == 0 {
		return reply(portfolio.RenderBalance(b))
	}

	var slices []chart.Slice
	for _, p := range b.Positions {
		if !p.Priced {
			continue
		}
		share := decimal.Zero
		if !b.TotalValue.IsZero() {
			share = p.Value.Div(b.TotalValue).Mul(decimal.NewFromInt(100))
		}
		slices = append(slices, chart.Slice{
			Label: fmt.Sprintf("%s %s", p.Symbol, helpers.FormatPercent(share)),
			Value: p.Value.InexactFloat64(),
		})
	}

	png, err := chart.RenderAllocation(translation.Translate("Portfolio %s", helpers.FormatMoney(b.TotalValue)), slices)
	if err != nil {
		log.WithField("user_id", userID).Warnf("could not draw allocation chart: %v", err)
		return reply(t("No priced holdings to draw."))
	}
	return Response{
		Text:  "📊 " + t("Allocation, total value %s", helpers.FormatMoney(b.TotalValue)),
		Photo: png,
	}
}
