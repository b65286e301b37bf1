package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"sync"
)

const (
	namespace = "stock_alert"
	subsystem = "bot"
)

// Metrics holds the service counters. Counters are restored from and saved
// to a Store so they survive restarts; the active alert gauge is not, since
// alerts are not persisted.
type Metrics struct {
	AlertsRegistered    prometheus.Counter
	AlertsTriggered     *prometheus.CounterVec
	ChecksRun           prometheus.Counter
	ChecksRejected      prometheus.Counter
	QuoteFailures       *prometheus.CounterVec
	NotificationsSent   prometheus.Counter
	NotificationsFailed prometheus.Counter
	ActiveAlerts        prometheus.Gauge
	CheckDuration       prometheus.Histogram

	mu sync.Mutex
}

// Store is the snapshot backend, implemented by database.DB.
type Store interface {
	SaveMetric(metricName, labelKey, labelValue string, value float64) error
	GetMetric(metricName string) (float64, error)
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_registered_total",
			Help:      "The total number of registered alerts",
		}),
		AlertsTriggered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "alerts_triggered_total",
				Help:      "The total number of alerts whose target was reached",
			},
			[]string{"symbol"},
		),
		ChecksRun: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checks_total",
			Help:      "The total number of completed price check cycles",
		}),
		ChecksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "checks_rejected_total",
			Help:      "Check cycles rejected because another cycle was running",
		}),
		QuoteFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "quote_failures_total",
				Help:      "Quote fetches that returned no usable price",
			},
			[]string{"provider"},
		),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Notifications accepted by the messaging API",
		}),
		NotificationsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Notifications that could not be delivered",
		}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_alerts",
			Help:      "The current number of active alerts",
		}),
		CheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "check_duration_seconds",
			Help:      "Wall time of a price check cycle",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	reg.MustRegister(
		m.AlertsRegistered,
		m.AlertsTriggered,
		m.ChecksRun,
		m.ChecksRejected,
		m.QuoteFailures,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.ActiveAlerts,
		m.CheckDuration,
	)

	return m
}

func (m *Metrics) plainCounters() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"alerts_registered":    m.AlertsRegistered,
		"checks":               m.ChecksRun,
		"checks_rejected":      m.ChecksRejected,
		"notifications_sent":   m.NotificationsSent,
		"notifications_failed": m.NotificationsFailed,
	}
}

func (m *Metrics) labelledCounters() map[string]*prometheus.CounterVec {
	return map[string]*prometheus.CounterVec{
		"alerts_triggered": m.AlertsTriggered,
		"quote_failures":   m.QuoteFailures,
	}
}

// Load adds the persisted counter values to the in-memory counters.
func (m *Metrics) Load(store Store) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, counter := range m.plainCounters() {
		value, err := store.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}

	for name, vec := range m.labelledCounters() {
		labelled, err := store.GetMetricsWithLabels(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		for _, values := range labelled {
			for labelValue, value := range values {
				vec.WithLabelValues(labelValue).Add(value)
			}
		}
	}

	log.Info("Metrics loaded from database.")
}

// Save writes the current counter values to store.
func (m *Metrics) Save(store Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for name, counter := range m.plainCounters() {
		if err := store.SaveMetric(name, "", "", GetMetricValue(counter)); err != nil {
			return err
		}
	}

	for name, vec := range m.labelledCounters() {
		metricChan := make(chan prometheus.Metric)
		go func() {
			vec.Collect(metricChan)
			close(metricChan)
		}()

		var saveErr error
		for metric := range metricChan {
			if saveErr != nil {
				continue
			}
			metricProto := &dto.Metric{}
			if err := metric.Write(metricProto); err != nil {
				log.Errorf("Failed to read %s metric: %v", name, err)
				continue
			}
			for _, label := range metricProto.Label {
				saveErr = store.SaveMetric(name, label.GetName(), label.GetValue(), metricProto.GetCounter().GetValue())
			}
		}
		if saveErr != nil {
			return saveErr
		}
	}

	log.Debug("Metrics saved to database.")
	return nil
}

// GetMetricValue reads the current value of a single counter or gauge.
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
