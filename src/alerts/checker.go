package alerts

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradelab/src/indicator"
	"tradelab/src/model"
	"tradelab/src/notify"
)

// alertLookback is the history window fetched per ticker; wide enough for
// every indicator column to be populated on the last two rows.
const alertLookback = 50

// MarketData supplies the D-1 and D0 rows used for crossover checks.
type MarketData interface {
	LastTwoRows(ctx context.Context, symbol string, lookback int) (prev, current indicator.Row, err error)
}

// Checker evaluates every active alert of paying users against the two most
// recent data points. Alerts are one-shot: a trigger deactivates the alert,
// records triggered_at, creates an in-app notification and emails the user.
type Checker struct {
	logger   *logrus.Entry
	market   MarketData
	notifier notify.Notifier
	now      func() time.Time
}

func NewChecker(logger *logrus.Entry, market MarketData, notifier notify.Notifier) *Checker {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Checker{
		logger:   logger.WithField("component", "AlertChecker"),
		market:   market,
		notifier: notifier,
		now:      time.Now,
	}
}

// CheckAndTrigger runs one alert batch and returns how many alerts fired.
// The whole batch commits in a single transaction; a failure on one ticker
// is logged and skipped so the remaining tickers still get processed.
func (c *Checker) CheckAndTrigger(ctx context.Context, db *gorm.DB) (int, error) {
	triggered := 0

	err := db.Transaction(func(tx *gorm.DB) error {
		var active []model.Alert
		err := tx.WithContext(ctx).
			Preload("User").
			Joins("JOIN users ON users.id = alerts.user_id").
			Where("alerts.is_active = ?", true).
			Where("users.role IN ?", []string{model.RolePro, model.RoleAdmin}).
			Find(&active).Error
		if err != nil {
			return fmt.Errorf("load active alerts: %w", err)
		}

		if len(active) == 0 {
			return nil
		}

		// One data fetch per ticker, however many alerts share it.
		byTicker := make(map[string][]model.Alert)
		for _, alert := range active {
			byTicker[alert.Ticker] = append(byTicker[alert.Ticker], alert)
		}

		tickers := make([]string, 0, len(byTicker))
		for ticker := range byTicker {
			tickers = append(tickers, ticker)
		}
		sort.Strings(tickers)

		for _, ticker := range tickers {
			count, err := c.processTicker(ctx, tx, ticker, byTicker[ticker])
			// Alerts triggered before the failure stay deactivated, so
			// they count even when the rest of the ticker is skipped.
			triggered += count
			if err != nil {
				c.logger.WithError(err).WithField("ticker", ticker).Error("failed to process ticker alerts, skipping")
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	c.logger.WithField("triggered", triggered).Info("alert batch completed")
	return triggered, nil
}

func (c *Checker) processTicker(ctx context.Context, tx *gorm.DB, ticker string, alerts []model.Alert) (int, error) {
	prev, current, err := c.market.LastTwoRows(ctx, ticker, alertLookback)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := range alerts {
		alert := alerts[i]
		if !evaluateAlert(alert, prev, current) {
			continue
		}

		if err := c.trigger(ctx, tx, &alert); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// evaluateAlert dispatches on the alert's indicator type. PRICE, RSI and
// STOCHASTIC compare one series against the fixed threshold; MACD compares
// the MACD line against its signal line; BBANDS compares the close against
// the band the condition's direction points at. Any unresolvable value
// evaluates to false.
func evaluateAlert(alert model.Alert, prev, current indicator.Row) bool {
	var valueName, refName string

	switch alert.IndicatorType {
	case model.AlertIndicatorPrice:
		valueName = indicator.NameClose
	case model.AlertIndicatorRSI:
		valueName = indicator.NameRSI
	case model.AlertIndicatorStochastic:
		valueName = indicator.NameStochasticK
	case model.AlertIndicatorMACD:
		valueName = indicator.NameMACD
		refName = indicator.NameMACDSignal
	case model.AlertIndicatorBBands:
		valueName = indicator.NameClose
		switch alert.Condition {
		case model.OperatorGreaterThan, model.OperatorCrossAbove:
			refName = indicator.NameBBUpper
		case model.OperatorLessThan, model.OperatorCrossBelow:
			refName = indicator.NameBBLower
		default:
			return false
		}
	default:
		return false
	}

	currentValue, ok := indicator.Resolve(current, valueName)
	if !ok {
		return false
	}

	var currentRef float64
	if refName != "" {
		if currentRef, ok = indicator.Resolve(current, refName); !ok {
			return false
		}
	} else {
		if alert.ThresholdValue == nil {
			return false
		}
		currentRef = *alert.ThresholdValue
	}

	// Plain comparisons look at D0 only; the D-1 row plays no part.
	switch alert.Condition {
	case model.OperatorGreaterThan:
		return currentValue > currentRef
	case model.OperatorLessThan:
		return currentValue < currentRef
	case model.OperatorCrossAbove, model.OperatorCrossBelow:
	default:
		return false
	}

	// Crossovers additionally require D-1 on the other side of the reference.
	prevValue, ok := indicator.Resolve(prev, valueName)
	if !ok {
		return false
	}
	prevRef := currentRef
	if refName != "" {
		if prevRef, ok = indicator.Resolve(prev, refName); !ok {
			return false
		}
	}

	if alert.Condition == model.OperatorCrossAbove {
		return prevValue <= prevRef && currentValue > currentRef
	}
	return prevValue >= prevRef && currentValue < currentRef
}

func (c *Checker) trigger(ctx context.Context, tx *gorm.DB, alert *model.Alert) error {
	now := c.now()

	err := tx.WithContext(ctx).
		Model(alert).
		Updates(map[string]any{"is_active": false, "triggered_at": now}).Error
	if err != nil {
		return fmt.Errorf("deactivate alert %d: %w", alert.ID, err)
	}

	alert.IsActive = false
	alert.TriggeredAt = &now

	title := fmt.Sprintf("Alert triggered: %s", alert.Ticker)
	message := fmt.Sprintf("%s %s condition met for %s", alert.IndicatorType, alert.Condition, alert.Ticker)
	data := map[string]any{
		"alert_id":       alert.ID,
		"ticker":         alert.Ticker,
		"indicator_type": alert.IndicatorType,
		"condition":      alert.Condition,
	}

	if err := c.notifier.SendNotification(ctx, alert.User, title, message, data); err != nil {
		c.logger.WithError(err).WithField("alert_id", alert.ID).Error("notification delivery failed")
	}

	// Role can change between selection and trigger; email only goes to a
	// tier that still includes alerts.
	if alert.User != nil && alert.User.CanReceiveAlerts() {
		if err := c.notifier.SendEmail(ctx, alert.User, title, message); err != nil {
			c.logger.WithError(err).WithField("alert_id", alert.ID).Error("email delivery failed")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"alert_id": alert.ID,
		"ticker":   alert.Ticker,
	}).Info("alert triggered")

	return nil
}
