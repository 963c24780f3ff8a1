package commands

import (
	"context"
	"errors"
	"strings"

	"crypto-portfolio-bot/internal/alert"
	"crypto-portfolio-bot/internal/conversation"
	"crypto-portfolio-bot/internal/database"
	"crypto-portfolio-bot/lib/helpers"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

func alertFormat() string {
	return t("Use the format: SYMBOL PRICE ABOVE|BELOW (e.g. BTC 40000 ABOVE)")
}

func reportFormat() string {
	return t("Use the format: FREQUENCY HH:MM, where FREQUENCY is daily, every_12_hours or every_3_days (e.g. daily 09:00)")
}

func (d *Dispatcher) commandSetAlert(ctx context.Context, userID int64, args string) Response {
	if args != "" {
		return d.setAlert(ctx, userID, args)
	}
	d.sessions.Await(userID, conversation.AwaitingAlert)
	return reply("🔔 " + t("Enter the alert.") + "\n" + alertFormat())
}

func (d *Dispatcher) setAlert(ctx context.Context, userID int64, text string) Response {
	a, err := ParseAlert(text)
	if err != nil {
		log.WithField("user_id", userID).Debugf("rejected alert %q: %v", text, err)
		return reply("❌ " + t("Invalid alert.") + "\n" + alertFormat())
	}

	a.UserID = userID
	if _, err := d.store.InsertAlert(ctx, a); err != nil {
		return d.internalError(err, userID, "Failed to save alert")
	}
	return reply("🔔 " + t("Alert set: you will be notified when %s goes %s %s.",
		a.Symbol, alert.DirectionWord(a.Direction), helpers.FormatMoney(decimal.NewFromFloat(a.TargetPrice))))
}

func (d *Dispatcher) commandAlerts(ctx context.Context, userID int64) Response {
	alerts, err := d.store.GetAlertsByUser(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to load alerts")
	}
	if len(alerts) == 0 {
		return reply(t("You have no active alerts."))
	}

	var sb strings.Builder
	sb.WriteString("🔔 " + helpers.Bold(t("Your active alerts:")) + "\n\n")
	for _, a := range alerts {
		sb.WriteString(t("%s %s %s (set on %s)",
			a.Symbol,
			alert.DirectionWord(a.Direction),
			helpers.FormatMoney(decimal.NewFromFloat(a.TargetPrice)),
			helpers.FormatDate(a.CreatedAt.In(d.loc))) + "\n")
	}
	return reply(strings.TrimRight(sb.String(), "\n"))
}

func (d *Dispatcher) commandSetReport(ctx context.Context, userID int64, args string) Response {
	if args != "" {
		return d.setReport(ctx, userID, args)
	}
	d.sessions.Await(userID, conversation.AwaitingReport)
	return reply("📅 " + t("Enter the report schedule.") + "\n" + reportFormat())
}

func (d *Dispatcher) setReport(ctx context.Context, userID int64, text string) Response {
	sub, err := ParseReport(text)
	if err != nil {
		log.WithField("user_id", userID).Debugf("rejected report schedule %q: %v", text, err)
		return reply("❌ " + t("Invalid report schedule.") + "\n" + reportFormat())
	}

	sub.UserID = userID
	if err := d.store.UpsertReport(ctx, sub); err != nil {
		return d.internalError(err, userID, "Failed to save report subscription")
	}
	if err := d.rebuildReports(ctx); err != nil {
		return reply("⚠️ " + t("Report saved, but it could not be scheduled. It will start after the next restart."))
	}
	return reply("📅 " + t("Report scheduled: %s at %s.", string(sub.Frequency), sub.TimeOfDay()))
}

func (d *Dispatcher) commandDeleteReport(ctx context.Context, userID int64) Response {
	removed, err := d.store.DeleteReport(ctx, userID)
	if err != nil {
		return d.internalError(err, userID, "Failed to delete report subscription")
	}
	if !removed {
		return reply(t("You have no scheduled report."))
	}
	if err := d.rebuildReports(ctx); err != nil {
		return reply("⚠️ " + t("Report deleted, but the running schedule could not be updated until the next restart."))
	}
	return reply("🗑 " + t("Scheduled report deleted."))
}

func (d *Dispatcher) commandShowReport(ctx context.Context, userID int64) Response {
	sub, err := d.store.GetReport(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return reply(t("You have no scheduled report."))
	} else if err != nil {
		return d.internalError(err, userID, "Failed to load report subscription")
	}

	text := "📅 " + t("Scheduled report: %s at %s.", string(sub.Frequency), sub.TimeOfDay())
	if next, ok := d.reports.NextRun(userID); ok {
		text += "\n" + t("Next run: %s (%s)", next.In(d.loc).Format("02-01-2006 15:04"), humanize.RelTime(next, d.now(), "ago", "from now"))
	}
	return reply(text)
}

// rebuildReports reloads the whole job set. On failure the previous job set keeps running.
func (d *Dispatcher) rebuildReports(ctx context.Context) error {
	if err := d.reports.Rebuild(ctx, d.store); err != nil {
		log.Errorf("❌ Failed to rebuild scheduled reports: %v", err)
		return err
	}
	return nil
}
