package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crypto-portfolio-bot/internal/alert"
	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/database"
	"crypto-portfolio-bot/internal/metrics"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/scheduler"
	"crypto-portfolio-bot/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const owner int64 = 1001

type stubPrices map[string]price.Quote

func (s stubPrices) GetPrice(_ context.Context, symbol string) (price.Quote, error) {
	q, ok := s[symbol]
	if !ok {
		return price.Quote{}, price.ErrSymbolNotFound
	}
	return q, nil
}

type fakeReports struct {
	rebuilds int
	subs     []types.ReportSubscription
	next     time.Time
	err      error
}

func (f *fakeReports) Rebuild(ctx context.Context, source scheduler.ReportSource) error {
	if f.err != nil {
		return f.err
	}
	subs, err := source.GetAllReports(ctx)
	if err != nil {
		return err
	}
	f.subs = subs
	f.rebuilds++
	return nil
}

func (f *fakeReports) NextRun(userID int64) (time.Time, bool) {
	for _, s := range f.subs {
		if s.UserID == userID {
			return f.next, true
		}
	}
	return time.Time{}, false
}

type fakeNotifier struct {
	texts []string
}

func (n *fakeNotifier) Notify(_ context.Context, _ int64, text string) error {
	n.texts = append(n.texts, text)
	return nil
}

type fixture struct {
	d       *Dispatcher
	store   *database.Store
	reports *fakeReports
	now     time.Time
}

func newFixture(t *testing.T, prices stubPrices) *fixture {
	store, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:   store,
		reports: &fakeReports{},
		now:     time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC),
	}
	f.d = NewDispatcher(Config{
		Store:            store,
		Prices:           prices,
		Reports:          f.reports,
		Sessions:         conversation.NewStore(10 * time.Minute),
		AuthorizedUserID: owner,
		Location:         time.UTC,
	})
	f.d.now = func() time.Time { return f.now }
	return f
}

func plain(markdown string) string {
	return strings.ReplaceAll(markdown, `\`, "")
}

func (f *fixture) command(name, args string) string {
	return plain(f.d.Handle(context.Background(), Request{UserID: owner, Command: name, Args: args}).Text)
}

func (f *fixture) text(text string) string {
	return plain(f.d.Handle(context.Background(), Request{UserID: owner, Text: text}).Text)
}

func (f *fixture) transactions(t *testing.T) []types.Transaction {
	txs, err := f.store.ListTransactions(context.Background(), owner, "")
	require.NoError(t, err)
	return txs
}

func TestUnauthorizedUserIsRejected(t *testing.T) {
	f := newFixture(t, stubPrices{})

	for _, req := range []Request{
		{UserID: 7, Command: "add", Args: "BTC 30000 0.1 25-12-2023"},
		{UserID: 7, Command: "reset"},
		{UserID: 7, Text: "YES"},
	} {
		resp := f.d.Handle(context.Background(), req)
		assert.Equal(t, "You are not authorized to use this bot.", strings.TrimPrefix(plain(resp.Text), "🚫 "))
	}
	assert.Empty(t, f.transactions(t))
	assert.Equal(t, conversation.None, f.d.sessions.Get(7).State)
}

func TestAddThenReadBack(t *testing.T) {
	f := newFixture(t, stubPrices{})

	assert.Contains(t, f.command("add", "btc 30000 0.1 25-12-2023"), "Transaction added: BTC - 0.1000 @ $30000.00 on 25-12-2023")

	assert.Contains(t, f.command("add", ""), "Enter the transaction.")
	assert.Contains(t, f.text("eth 2000 1.5 01-01-2024"), "Transaction added")

	txs := f.transactions(t)
	require.Len(t, txs, 2)
	assert.Equal(t, "BTC", txs[0].Symbol)
	assert.Equal(t, 0.1, txs[0].Quantity)
	assert.Equal(t, 30000.0, txs[0].UnitPrice)
	assert.Equal(t, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), txs[0].Date)
	assert.Equal(t, "ETH", txs[1].Symbol)
	assert.Equal(t, 1.5, txs[1].Quantity)
}

func TestAddRejectsInvalidLineWithoutWriting(t *testing.T) {
	f := newFixture(t, stubPrices{})

	out := f.command("add", "BTC 30000 0 25-12-2023")
	assert.Contains(t, out, "Invalid transaction.")
	assert.Contains(t, out, "SYMBOL PRICE QUANTITY DD-MM-YYYY")
	assert.Empty(t, f.transactions(t))
}

func TestBalanceScenario(t *testing.T) {
	f := newFixture(t, stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 35000, PriceChange24h: 5}})
	f.command("add", "BTC 30000 0.1 25-12-2023")

	out := f.command("balance", "")
	assert.Contains(t, out, "Quantity: 0.1000")
	assert.Contains(t, out, "Current value: $3500.00")
	assert.Contains(t, out, "Cost: $3000.00")
	assert.Contains(t, out, "P/L: $500.00 (+16.67%)")
	assert.Contains(t, out, "Days held: 10")

	assert.Contains(t, f.command("profit", ""), "Total profit/loss: $500.00")
}

func TestAddMultipleIsPartitionStable(t *testing.T) {
	f := newFixture(t, stubPrices{})

	assert.Contains(t, f.command("addmultiple", ""), "FINE or DONE")

	out := f.text("BTC 30000 0.1 25-12-2023\nnot a transaction\nETH 2000 -1 01-01-2024\n\nETH 2000 1 01-01-2024")
	assert.Contains(t, out, "2 transactions added.")
	assert.Contains(t, out, "not a transaction")
	assert.Contains(t, out, "ETH 2000 -1 01-01-2024")
	assert.Equal(t, conversation.AwaitingBulk, f.d.sessions.Get(owner).State)

	out = f.text("SOL 100 3 02-01-2024\nfine\nADA 1 1 02-01-2024")
	assert.Contains(t, out, "1 transactions added.")
	assert.Contains(t, out, "Bulk entry finished.")
	assert.Equal(t, conversation.None, f.d.sessions.Get(owner).State)

	symbols := map[string]bool{}
	for _, tx := range f.transactions(t) {
		symbols[tx.Symbol] = true
	}
	assert.Equal(t, map[string]bool{"BTC": true, "ETH": true, "SOL": true}, symbols)
}

func TestWeeklyWithTransactionFromToday(t *testing.T) {
	f := newFixture(t, stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 40000}})
	f.command("add", "BTC 39000 0.5 04-01-2024")

	out := f.command("weekly", "")
	assert.Contains(t, out, "7 days ago: 0.0000 ($0.00)")
	assert.Contains(t, out, "Today: 0.5000 ($20000.00)")
	assert.Contains(t, out, "(+0.00%)")
}

func TestHistory(t *testing.T) {
	f := newFixture(t, stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 35000}})
	f.command("add", "BTC 32000 0.2 01-01-2024")
	f.command("add", "BTC 30000 0.1 25-12-2023")
	f.command("add", "ETH 2000 1 01-01-2024")

	out := f.command("history", "btc")
	first := strings.Index(out, "25-12-2023")
	second := strings.Index(out, "01-01-2024")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "oldest first")
	assert.Contains(t, out, "Current price of BTC: $35000.00")
	assert.NotContains(t, out, "ETH")

	assert.Contains(t, f.command("history", ""), "Usage: /history SYMBOL")
}

func TestSetAlertThenSweep(t *testing.T) {
	f := newFixture(t, stubPrices{})

	assert.Contains(t, f.command("setalert", "BTC 40000 SOPRA"), "BTC goes above $40000.00")
	assert.Contains(t, f.command("alerts", ""), "BTC above $40000.00")

	notifier := &fakeNotifier{}
	svc := alert.NewService(f.store, stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 41000}}, notifier)
	assert.Equal(t, 1, svc.CheckAlerts(context.Background()))
	require.Len(t, notifier.texts, 1)
	assert.Contains(t, plain(notifier.texts[0]), "above your target of $40000.00")

	alerts, err := f.store.GetAlertsByUser(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Contains(t, f.command("alerts", ""), "You have no active alerts.")
}

func TestSetAlertPromptAndInvalidInput(t *testing.T) {
	f := newFixture(t, stubPrices{})

	assert.Contains(t, f.command("setalert", ""), "Enter the alert.")
	assert.Contains(t, f.text("BTC 40000 SIDEWAYS"), "Invalid alert.")
	assert.Equal(t, conversation.None, f.d.sessions.Get(owner).State)

	alerts, err := f.store.GetAlertsByUser(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestSetReportUpsertsAndRebuilds(t *testing.T) {
	f := newFixture(t, stubPrices{})
	f.reports.next = f.now.Add(3 * time.Hour)

	assert.Contains(t, f.command("showreport", ""), "You have no scheduled report.")

	assert.Contains(t, f.command("setreport", "daily 09:00"), "Report scheduled: daily at 09:00.")
	assert.Contains(t, f.command("setreport", ""), "Enter the report schedule.")
	assert.Contains(t, f.text("every_3_days 18:30"), "Report scheduled: every_3_days at 18:30.")

	assert.Equal(t, 2, f.reports.rebuilds)
	require.Len(t, f.reports.subs, 1, "a second subscription replaces the first")
	assert.Equal(t, types.Every3Days, f.reports.subs[0].Frequency)

	out := f.command("showreport", "")
	assert.Contains(t, out, "every_3_days at 18:30")
	assert.Contains(t, out, "Next run: 04-01-2024 15:00 (3 hours from now)")

	assert.Contains(t, f.command("setreport", "weekly 09:00"), "Invalid report schedule.")
	assert.Equal(t, 2, f.reports.rebuilds)

	assert.Contains(t, f.command("deletereport", ""), "Scheduled report deleted.")
	assert.Equal(t, 3, f.reports.rebuilds)
	assert.Empty(t, f.reports.subs)
	assert.Contains(t, f.command("deletereport", ""), "You have no scheduled report.")
}

func TestSetReportTellsUserWhenSchedulingFails(t *testing.T) {
	f := newFixture(t, stubPrices{})
	f.reports.err = errors.New("cron: bad schedule")

	out := f.command("setreport", "daily 09:00")
	assert.Contains(t, out, "Report saved, but it could not be scheduled.")
	assert.NotContains(t, out, "Report scheduled")

	sub, err := f.store.GetReport(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, types.Daily, sub.Frequency)

	out = f.command("deletereport", "")
	assert.Contains(t, out, "Report deleted, but the running schedule could not be updated")
	assert.NotContains(t, out, "Scheduled report deleted.")
}

func TestDeleteEditFlow(t *testing.T) {
	f := newFixture(t, stubPrices{})
	f.command("add", "BTC 30000 0.1 25-12-2023")
	f.command("add", "ETH 2000 1 01-01-2024")

	menu := f.command("deleteedit", "")
	assert.Contains(t, menu, "1. ETH - 1.0000 @ $2000.00 on 01-01-2024")
	assert.Contains(t, menu, "2. BTC")

	assert.Contains(t, f.text("5"), "Invalid selection. Start again with /deleteedit.")
	assert.Equal(t, conversation.None, f.d.sessions.Get(owner).State)
	assert.Len(t, f.transactions(t), 2)

	f.command("deleteedit", "")
	assert.Contains(t, f.text("1"), "Selected: ETH")
	assert.Contains(t, f.text("X"), "Invalid action.")
	assert.Len(t, f.transactions(t), 2)

	f.command("deleteedit", "")
	f.text("2")
	assert.Contains(t, f.text("m"), "Send the new values.")
	assert.Contains(t, f.text("BTC 31000 0.3 26-12-2023"), "Transaction updated: BTC - 0.3000 @ $31000.00 on 26-12-2023")

	f.command("deleteedit", "")
	f.text("1")
	assert.Contains(t, f.text("D"), "Transaction deleted.")

	txs := f.transactions(t)
	require.Len(t, txs, 1)
	assert.Equal(t, "BTC", txs[0].Symbol)
	assert.Equal(t, 0.3, txs[0].Quantity)
}

func TestResetNeedsConfirmationAndKeepsAlerts(t *testing.T) {
	f := newFixture(t, stubPrices{})
	f.command("add", "BTC 30000 0.1 25-12-2023")
	f.command("setalert", "BTC 40000 ABOVE")

	f.command("reset", "")
	assert.Contains(t, f.text("no"), "Reset cancelled.")
	assert.Len(t, f.transactions(t), 1)

	f.command("reset", "")
	assert.Contains(t, f.text("si"), "All your transactions have been deleted (1).")
	assert.Empty(t, f.transactions(t))

	alerts, err := f.store.GetAlertsByUser(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestCommandResetsPendingStep(t *testing.T) {
	f := newFixture(t, stubPrices{})

	f.command("add", "")
	f.command("debug", "")
	assert.Contains(t, f.text("BTC 30000 0.1 25-12-2023"), "Command not recognised.")
	assert.Empty(t, f.transactions(t))

	f.command("reset", "")
	assert.Contains(t, f.command("cancel", ""), "Operation cancelled.")
	assert.Contains(t, f.text("YES"), "Command not recognised.")
}

func commandSeries() int {
	ch := make(chan prometheus.Metric, 128)
	metrics.Bot.CommandsPerName.Collect(ch)
	close(ch)
	return len(ch)
}

func commandCount(name string) float64 {
	return metrics.GetMetricValue(metrics.Bot.CommandsPerName.WithLabelValues(name))
}

func TestCommandCountingOnlyForAuthorizedUser(t *testing.T) {
	f := newFixture(t, stubPrices{})
	balance := commandCount("balance")
	unknown := commandCount("unknown")
	series := commandSeries()

	f.d.Handle(context.Background(), Request{UserID: 7, Command: "balance"})
	f.d.Handle(context.Background(), Request{UserID: 7, Command: "spam_label_1234"})
	assert.Equal(t, balance, commandCount("balance"))
	assert.Equal(t, series, commandSeries(), "unauthorized senders never add label values")

	f.command("balance", "")
	f.command("moon", "")
	f.command("MOON2", "")
	assert.Equal(t, balance+1, commandCount("balance"))
	assert.Equal(t, unknown+2, commandCount("unknown"))
	assert.Equal(t, series, commandSeries())
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t, stubPrices{})
	assert.Contains(t, f.command("moon", ""), "Use /help")
	assert.Contains(t, f.command("help", ""), "/setreport")
}

func TestDebugListsIDs(t *testing.T) {
	f := newFixture(t, stubPrices{})
	assert.Contains(t, f.command("debug", ""), "There are no transactions")

	f.command("add", "BTC 30000 0.1 25-12-2023")
	assert.Contains(t, f.command("debug", ""), "ID: 1, Symbol: BTC")
}

func TestChart(t *testing.T) {
	f := newFixture(t, stubPrices{"BTC": {Symbol: "BTC", PriceUSD: 35000}})
	assert.Nil(t, f.d.Handle(context.Background(), Request{UserID: owner, Command: "chart"}).Photo)

	f.command("add", "BTC 30000 0.1 25-12-2023")
	resp := f.d.Handle(context.Background(), Request{UserID: owner, Command: "chart"})
	assert.NotEmpty(t, resp.Photo)
	assert.Contains(t, plain(resp.Text), "$3500.00")
}
