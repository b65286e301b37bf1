package alert

import (
	"bytes"
	"context"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"math"
	"runtime"
	"stock-alert-bot/internal/metrics"
	"stock-alert-bot/internal/types"
	"stock-alert-bot/lib/helpers"
	"stock-alert-bot/lib/translation"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DeliveryAtMostOnce claims the alert before sending; a failed send loses it.
	DeliveryAtMostOnce = "at-most-once"
	// DeliveryAtLeastOnce removes the alert only after a successful send.
	DeliveryAtLeastOnce = "at-least-once"
)

type Options struct {
	DeliveryPolicy string
	// RequestTimeout bounds each quote fetch and each notification.
	RequestTimeout time.Duration
	CurrencySymbol string
}

// Service registers alerts and runs price check cycles over them.
type Service struct {
	store    *Store
	quotes   QuoteProvider
	notifier Notifier
	metrics  *metrics.Metrics
	opts     Options

	// checkMu is held for the whole cycle; overlapping cycles are rejected.
	checkMu sync.Mutex
}

func NewService(store *Store, quotes QuoteProvider, notifier Notifier, m *metrics.Metrics, opts Options) *Service {
	if opts.DeliveryPolicy == "" {
		opts.DeliveryPolicy = DeliveryAtMostOnce
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	return &Service{
		store:    store,
		quotes:   quotes,
		notifier: notifier,
		metrics:  m,
		opts:     opts,
	}
}

// Register validates the input and appends a new active alert.
func (s *Service) Register(symbol, target string) (types.Alert, error) {
	symbol = strings.TrimSpace(symbol)
	target = strings.TrimSpace(target)

	if symbol == "" {
		return types.Alert{}, &ValidationError{Field: "stock symbol", Reason: "is required"}
	}
	if target == "" {
		return types.Alert{}, &ValidationError{Field: "target price", Reason: "is required"}
	}

	value, err := strconv.ParseFloat(target, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return types.Alert{}, &ValidationError{Field: "target price", Reason: "must be a positive number"}
	}

	a := types.Alert{
		ID:        uuid.NewString(),
		Symbol:    strings.ToUpper(symbol),
		Target:    value,
		Status:    types.StatusActive,
		CreatedAt: time.Now(),
	}
	s.store.Add(a)

	s.metrics.AlertsRegistered.Inc()
	s.metrics.ActiveAlerts.Set(float64(s.store.Len()))

	log.WithFields(log.Fields{"alert_id": a.ID, "symbol": a.Symbol, "target": a.Target}).Info("New alert set")
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("New alert: %s", spew.Sdump(a))
	}
	return a, nil
}

// Alerts lists the active alerts, newest first.
func (s *Service) Alerts() []types.Alert {
	return s.store.Snapshot()
}

// ConfirmationMessage is the text returned to whoever registered a.
func (s *Service) ConfirmationMessage(a types.Alert) string {
	return translation.Translate("Alert set for %s at %s%s", a.Symbol, s.opts.CurrencySymbol, helpers.FormatTarget(a.Target))
}

// CheckAlerts compares every active alert with its live price, notifies on
// triggered ones and removes them according to the delivery policy.
// Per-alert failures are logged and never returned.
func (s *Service) CheckAlerts(ctx context.Context) error {
	if !s.checkMu.TryLock() {
		s.metrics.ChecksRejected.Inc()
		return ErrCheckInProgress
	}
	defer s.checkMu.Unlock()

	start := time.Now()
	defer func() {
		s.metrics.ActiveAlerts.Set(float64(s.store.Len()))
	}()

	alerts := s.store.Snapshot()
	if len(alerts) == 0 {
		log.Debug("🔄 No active alerts to check.")
		s.metrics.ChecksRun.Inc()
		return nil
	}

	log.Infof("🔄 Checking prices for %d active alert(s)...", len(alerts))

	for _, a := range alerts {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "check cycle interrupted")
		}
		s.checkAlert(ctx, a)
	}

	s.metrics.ChecksRun.Inc()
	s.metrics.CheckDuration.Observe(time.Since(start).Seconds())
	log.Info("✅ Alert check completed.")
	return nil
}

func (s *Service) checkAlert(ctx context.Context, a types.Alert) {
	logger := log.WithFields(log.Fields{"alert_id": a.ID, "symbol": a.Symbol, "target": a.Target})

	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 4096)
			stackSize := runtime.Stack(stackBuf, false)
			logger.Errorf("🔥 Panic recovered while checking alert: %v\nStack trace: %s", r, bytes.TrimRight(stackBuf[:stackSize], "\x00"))
		}
	}()

	quoteCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	quote, err := s.quotes.Quote(quoteCtx, a.Symbol)
	cancel()
	if err != nil {
		s.metrics.QuoteFailures.WithLabelValues(s.quotes.Name()).Inc()
		logger.Warnf("⚠️ No price data, keeping alert for the next cycle: %v", err)
		return
	}

	logger.WithField("current", quote.Price).Info("🔍 Checked price")

	if !a.Triggered(quote.Price) {
		return
	}

	logger.WithFields(log.Fields{"current": quote.Price, "set": humanize.Time(a.CreatedAt)}).Info("🚨 Alert triggered")

	// Never claim on a cancelled cycle.
	if err := ctx.Err(); err != nil {
		logger.Warnf("Cycle cancelled before notifying, alert stays active: %v", err)
		return
	}
	message := s.triggerMessage(a, quote.Price)

	if s.opts.DeliveryPolicy == DeliveryAtLeastOnce {
		if err := s.notify(ctx, message); err != nil {
			logger.Errorf("❌ Failed to send notification, alert stays active: %v", err)
			return
		}
		if s.store.Remove(a.ID) {
			s.metrics.AlertsTriggered.WithLabelValues(a.Symbol).Inc()
		}
		return
	}

	if !s.store.Remove(a.ID) {
		logger.Debug("Alert already claimed elsewhere, not notifying")
		return
	}
	s.metrics.AlertsTriggered.WithLabelValues(a.Symbol).Inc()

	if err := s.notify(ctx, message); err != nil {
		logger.Errorf("❌ Failed to send notification, alert dropped: %v", err)
		return
	}
	logger.Info("✅ Notification sent")
}

// notify is detached from cycle cancellation once an alert is claimed and is
// bounded by RequestTimeout alone.
func (s *Service) notify(ctx context.Context, message string) error {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.RequestTimeout)
	defer cancel()

	if err := s.notifier.Notify(notifyCtx, message); err != nil {
		s.metrics.NotificationsFailed.Inc()
		return err
	}
	s.metrics.NotificationsSent.Inc()
	return nil
}

func (s *Service) triggerMessage(a types.Alert, current float64) string {
	currency := helpers.EscapeMarkdownV2(s.opts.CurrencySymbol)
	return translation.Translate(
		"📈 *Stock Alert* 📈\n\n*%s* has reached your target price\\!\n\nTarget: %s%s\nCurrent: %s%s",
		helpers.EscapeMarkdownV2(a.Symbol),
		currency, helpers.EscapeMarkdownV2(helpers.FormatTarget(a.Target)),
		currency, helpers.FormatPrice(current, true),
	)
}
