// Package commands turns Telegram commands and follow-up messages into ledger operations and replies.
package commands

import (
	"context"
	"strings"
	"time"

	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/metrics"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/scheduler"
	"crypto-portfolio-bot/internal/types"
	"crypto-portfolio-bot/lib/helpers"
	"crypto-portfolio-bot/lib/translation"

	log "github.com/sirupsen/logrus"
)

const (
	recentForEdit  = 10
	recentForDebug = 20
)

// knownCommands bounds the label values of the per-command counter.
var knownCommands = map[string]bool{
	"start": true, "help": true, "cancel": true, "add": true, "addmultiple": true,
	"balance": true, "profit": true, "weekly": true, "history": true, "chart": true,
	"deleteedit": true, "reset": true, "debug": true, "setalert": true, "alerts": true,
	"setreport": true, "deletereport": true, "showreport": true,
}

// countCommand records an authorized command; anything unrecognised shares the "unknown" label.
func countCommand(command string) {
	if !knownCommands[command] {
		command = "unknown"
	}
	metrics.Bot.CommandsProcessed.Inc()
	metrics.Bot.CommandsPerName.WithLabelValues(command).Inc()
}

// Store is everything the commands read from or write to the ledger.
type Store interface {
	InsertTransaction(ctx context.Context, tx types.Transaction) (int64, error)
	ListTransactions(ctx context.Context, userID int64, symbol string) ([]types.Transaction, error)
	RecentTransactions(ctx context.Context, userID int64, limit int) ([]types.Transaction, error)
	UpdateTransaction(ctx context.Context, tx types.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id int64) (bool, error)
	DeleteUserTransactions(ctx context.Context, userID int64) (int64, error)
	Holdings(ctx context.Context, userID int64) ([]types.Holding, error)
	QuantityChanges(ctx context.Context, userID int64, cutoff time.Time) ([]types.QuantityChange, error)

	InsertAlert(ctx context.Context, alert types.PriceAlert) (int64, error)
	GetAlertsByUser(ctx context.Context, userID int64) ([]types.PriceAlert, error)

	UpsertReport(ctx context.Context, sub types.ReportSubscription) error
	DeleteReport(ctx context.Context, userID int64) (bool, error)
	GetReport(ctx context.Context, userID int64) (types.ReportSubscription, error)
	GetAllReports(ctx context.Context) ([]types.ReportSubscription, error)
}

// ReportScheduler is rebuilt after every subscription change.
type ReportScheduler interface {
	Rebuild(ctx context.Context, source scheduler.ReportSource) error
	NextRun(userID int64) (time.Time, bool)
}

// Request is one inbound message. Command is empty for plain text.
type Request struct {
	UserID  int64
	Command string
	Args    string
	Text    string
}

// Response is a MarkdownV2 reply, optionally with a PNG attached (Text becomes its caption).
type Response struct {
	Text  string
	Photo []byte
}

type Config struct {
	Store            Store
	Prices           price.Provider
	Reports          ReportScheduler
	Sessions         *conversation.Store
	AuthorizedUserID int64
	Location         *time.Location
}

type Dispatcher struct {
	store            Store
	prices           price.Provider
	reports          ReportScheduler
	sessions         *conversation.Store
	authorizedUserID int64
	loc              *time.Location
	now              func() time.Time
}

func NewDispatcher(c Config) *Dispatcher {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{
		store:            c.Store,
		prices:           c.Prices,
		reports:          c.Reports,
		sessions:         c.Sessions,
		authorizedUserID: c.AuthorizedUserID,
		loc:              loc,
		now:              time.Now,
	}
}

// t translates msgID and escapes the result for MarkdownV2.
func t(msgID string, vars ...interface{}) string {
	return helpers.EscapeMarkdownV2(translation.Translate(msgID, vars...))
}

func reply(text string) Response {
	return Response{Text: text}
}

func (d *Dispatcher) internalError(err error, userID int64, what string) Response {
	log.WithField("user_id", userID).Errorf("❌ %s: %v", what, err)
	return reply("❌ " + t("Something went wrong, please try again later."))
}

// today is the current calendar date in the bot's location, as a UTC midnight like stored dates.
func (d *Dispatcher) today() time.Time {
	y, m, day := d.now().In(d.loc).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// Handle answers one message. Unauthorized senders get a fixed rejection and nothing else happens.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Response {
	if req.UserID != d.authorizedUserID {
		metrics.Bot.UnauthorizedDenied.Inc()
		log.WithField("user_id", req.UserID).Warn("🚫 Rejected message from unauthorized user")
		return reply("🚫 " + t("You are not authorized to use this bot."))
	}

	if req.Command == "" {
		return d.handleText(ctx, req.UserID, req.Text)
	}

	d.sessions.Reset(req.UserID)
	log.Debugf("received command: %s %s", req.Command, req.Args)

	command := strings.ToLower(req.Command)
	countCommand(command)

	args := strings.TrimSpace(req.Args)
	switch command {
	case "start", "help":
		return reply(helpText())
	case "cancel":
		return reply(t("Operation cancelled."))
	case "add":
		return d.commandAdd(ctx, req.UserID, args)
	case "addmultiple":
		return d.commandAddMultiple(req.UserID)
	case "balance":
		return d.commandBalance(ctx, req.UserID)
	case "profit":
		return d.commandProfit(ctx, req.UserID)
	case "weekly":
		return d.commandWeekly(ctx, req.UserID)
	case "history":
		return d.commandHistory(ctx, req.UserID, args)
	case "chart":
		return d.commandChart(ctx, req.UserID)
	case "deleteedit":
		return d.commandDeleteEdit(ctx, req.UserID)
	case "reset":
		return d.commandReset(req.UserID)
	case "debug":
		return d.commandDebug(ctx, req.UserID)
	case "setalert":
		return d.commandSetAlert(ctx, req.UserID, args)
	case "alerts":
		return d.commandAlerts(ctx, req.UserID)
	case "setreport":
		return d.commandSetReport(ctx, req.UserID, args)
	case "deletereport":
		return d.commandDeleteReport(ctx, req.UserID)
	case "showreport":
		return d.commandShowReport(ctx, req.UserID)
	}
	return reply(unknownCommand())
}

// handleText advances the user's pending conversation step.
func (d *Dispatcher) handleText(ctx context.Context, userID int64, text string) Response {
	sess := d.sessions.Get(userID)
	log.WithFields(log.Fields{"user_id": userID, "state": sess.State}).Debug("follow-up message")

	switch sess.State {
	case conversation.AwaitingTransaction:
		d.sessions.Reset(userID)
		return d.addTransaction(ctx, userID, text)
	case conversation.AwaitingBulk:
		return d.addBatch(ctx, userID, text)
	case conversation.AwaitingResetConfirmation:
		d.sessions.Reset(userID)
		return d.confirmReset(ctx, userID, text)
	case conversation.AwaitingSelection:
		return d.selectTransaction(userID, sess, text)
	case conversation.AwaitingAction:
		return d.chooseAction(ctx, userID, sess, text)
	case conversation.AwaitingEdit:
		d.sessions.Reset(userID)
		return d.editTransaction(ctx, userID, sess, text)
	case conversation.AwaitingAlert:
		d.sessions.Reset(userID)
		return d.setAlert(ctx, userID, text)
	case conversation.AwaitingReport:
		d.sessions.Reset(userID)
		return d.setReport(ctx, userID, text)
	}
	return reply(unknownCommand())
}

func unknownCommand() string {
	return t("Command not recognised. Use /help to see the available commands.")
}

func helpText() string {
	lines := []string{
		"👋 " + helpers.Bold(t("Crypto portfolio bot")),
		"",
		t("/add - record a purchase: SYMBOL PRICE QUANTITY DD-MM-YYYY"),
		t("/addmultiple - record several purchases, one per line, then FINE or DONE"),
		t("/balance - current value and performance of your portfolio"),
		t("/profit - profit or loss per asset"),
		t("/weekly - compare your holdings with 7 days ago"),
		t("/history SYMBOL - purchases of one asset"),
		t("/chart - allocation pie chart"),
		t("/deleteedit - delete or modify a recent transaction"),
		t("/reset - delete all your transactions"),
		t("/debug - last transactions with their ids"),
		t("/setalert - price alert: SYMBOL PRICE ABOVE|BELOW"),
		t("/alerts - list your active alerts"),
		t("/setreport - periodic report: daily|every_12_hours|every_3_days HH:MM"),
		t("/deletereport - stop the periodic report"),
		t("/showreport - show the periodic report settings"),
		t("/cancel - abort the current operation"),
	}
	return strings.Join(lines, "\n")
}
