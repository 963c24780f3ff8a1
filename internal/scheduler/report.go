package scheduler

import (
	"context"

	"crypto-portfolio-bot/internal/alert"
	"crypto-portfolio-bot/internal/metrics"
	"crypto-portfolio-bot/internal/portfolio"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/types"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type HoldingsStore interface {
	Holdings(ctx context.Context, userID int64) ([]types.Holding, error)
}

// Reporter renders and delivers the portfolio summary of one user.
type Reporter struct {
	store    HoldingsStore
	prices   price.Provider
	notifier alert.Notifier
}

func NewReporter(store HoldingsStore, prices price.Provider, notifier alert.Notifier) *Reporter {
	return &Reporter{store: store, prices: prices, notifier: notifier}
}

func (r *Reporter) SendReport(ctx context.Context, userID int64) error {
	holdings, err := r.store.Holdings(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load holdings")
	}

	report := portfolio.ComputeReport(ctx, price.NewSweepCache(r.prices), holdings)
	if skipped := len(holdings) - len(report.Lines); skipped > 0 {
		metrics.Bot.PriceFetchFailures.Add(float64(skipped))
		log.WithField("user_id", userID).Warnf("⚠️ %d symbols left out of the report, no price data", skipped)
	}

	if err := r.notifier.Notify(ctx, userID, portfolio.RenderReport(report)); err != nil {
		return errors.Wrap(err, "failed to deliver report")
	}
	metrics.Bot.ReportsSent.Inc()
	return nil
}
