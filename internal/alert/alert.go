package alert

import (
	"context"
	"sync"

	"crypto-portfolio-bot/internal/metrics"
	"crypto-portfolio-bot/internal/price"
	"crypto-portfolio-bot/internal/types"
	"crypto-portfolio-bot/lib/helpers"
	"crypto-portfolio-bot/lib/translation"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Notifier delivers a MarkdownV2 message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Store is the slice of the ledger the sweep needs.
type Store interface {
	GetAllAlerts(ctx context.Context) ([]types.PriceAlert, error)
	DeleteAlert(ctx context.Context, alertID int64) (bool, error)
}

// Service evaluates standing price alerts.
type Service struct {
	store    Store
	prices   price.Provider
	notifier Notifier

	// only one sweep runs at a time
	mu sync.Mutex
}

func NewService(store Store, prices price.Provider, notifier Notifier) *Service {
	return &Service{store: store, prices: prices, notifier: notifier}
}

// CheckAlerts runs one sweep over the alerts of every user and returns how many fired.
// A fired alert is deleted only once its notification was sent; an alert whose send
// failed stays for the next sweep. Failures on one alert never stop the rest of the sweep.
func (s *Service) CheckAlerts(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug("🔄 Checking alerts...")

	alerts, err := s.store.GetAllAlerts(ctx)
	if err != nil {
		log.Errorf("❌ Failed to fetch alerts from the database: %v", err)
		return 0
	}

	prices := price.NewSweepCache(s.prices)
	fired := 0
	for _, alert := range alerts {
		logger := log.WithFields(log.Fields{"alert_id": alert.ID, "symbol": alert.Symbol, "user_id": alert.UserID})

		quote, err := prices.GetPrice(ctx, alert.Symbol)
		if err != nil {
			metrics.Bot.PriceFetchFailures.Inc()
			logger.Warnf("⚠️ No price data, alert kept: %v", err)
			continue
		}

		logger.Debugf("🔍 Checking alert | Target: %.2f %s | Current: %.2f", alert.TargetPrice, alert.Direction, quote.PriceUSD)
		if !alert.Triggered(quote.PriceUSD) {
			continue
		}

		if err := s.notifier.Notify(ctx, alert.UserID, Message(alert, quote.PriceUSD)); err != nil {
			logger.Errorf("❌ Failed to send price alert notification, alert kept: %v", err)
			continue
		}

		claimed, err := s.store.DeleteAlert(ctx, alert.ID)
		if err != nil {
			logger.Errorf("❌ Failed to delete triggered alert: %v", err)
		} else if !claimed {
			logger.Warn("Alert was already removed by someone else")
		}

		metrics.Bot.AlertsTriggered.Inc()
		logger.Infof("✅ Price alert notification sent")
		fired++
	}

	log.Debugf("✅ Alert check completed, %d of %d fired.", fired, len(alerts))
	return fired
}

// DirectionWord is the localized word for an alert direction.
func DirectionWord(d types.Direction) string {
	if d == types.Above {
		return translation.Translate("above")
	}
	return translation.Translate("below")
}

// Message is the notification sent when an alert fires.
func Message(alert types.PriceAlert, current float64) string {
	return "⚠️ " + helpers.EscapeMarkdownV2(translation.Translate(
		"Alert: the price of %s is now %s, which is %s your target of %s",
		alert.Symbol,
		helpers.FormatMoney(decimal.NewFromFloat(current)),
		DirectionWord(alert.Direction),
		helpers.FormatMoney(decimal.NewFromFloat(alert.TargetPrice)),
	))
}
