package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

type BotMetrics struct {
	CommandsProcessed  prometheus.Counter
	MessagesHandled    prometheus.Counter
	UnauthorizedDenied prometheus.Counter
	AlertsTriggered    prometheus.Counter
	ReportsSent        prometheus.Counter
	PriceFetchFailures prometheus.Counter
	CommandsPerName    *prometheus.CounterVec
	Mutex              sync.Mutex
}

// Bot is the process-wide set of counters.
var Bot = NewBotMetrics(prometheus.DefaultRegisterer)

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "crypto_portfolio",
		Subsystem: "telegram_bot",
		Name:      name,
		Help:      help,
	})
}

func NewBotMetrics(registerer prometheus.Registerer) *BotMetrics {
	metrics := &BotMetrics{
		CommandsProcessed:  newCounter("commands_processed", "The total number of processed commands"),
		MessagesHandled:    newCounter("messages_handled", "The total number of handled messages"),
		UnauthorizedDenied: newCounter("unauthorized_denied", "The total number of messages rejected from unauthorized senders"),
		AlertsTriggered:    newCounter("alerts_triggered", "The total number of price alerts that fired"),
		ReportsSent:        newCounter("reports_sent", "The total number of scheduled portfolio reports sent"),
		PriceFetchFailures: newCounter("price_fetch_failures", "The total number of price lookups that failed during background jobs"),
		CommandsPerName: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crypto_portfolio",
				Subsystem: "telegram_bot",
				Name:      "commands_per_name",
				Help:      "The total number of processed commands per command name",
			},
			[]string{"command"},
		),
	}

	registerer.MustRegister(
		metrics.CommandsProcessed,
		metrics.MessagesHandled,
		metrics.UnauthorizedDenied,
		metrics.AlertsTriggered,
		metrics.ReportsSent,
		metrics.PriceFetchFailures,
		metrics.CommandsPerName,
	)

	return metrics
}

// counters maps persisted names to the plain counters.
func (m *BotMetrics) counters() map[string]prometheus.Counter {
	return map[string]prometheus.Counter{
		"commands_processed":   m.CommandsProcessed,
		"messages_handled":     m.MessagesHandled,
		"unauthorized_denied":  m.UnauthorizedDenied,
		"alerts_triggered":     m.AlertsTriggered,
		"reports_sent":         m.ReportsSent,
		"price_fetch_failures": m.PriceFetchFailures,
	}
}

// Store persists counter values across restarts.
type Store interface {
	SaveMetric(metricName string, value float64) error
	GetMetric(metricName string) (float64, error)
	SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
}

// LoadFromDB adds the persisted values onto the in-memory counters.
func (m *BotMetrics) LoadFromDB(store Store) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, counter := range m.counters() {
		value, err := store.GetMetric(name)
		if err != nil {
			log.Errorf("Failed to load metric %s: %v", name, err)
			continue
		}
		counter.Add(value)
	}

	labeled, err := store.GetMetricsWithLabels("commands_per_name")
	if err != nil {
		log.Errorf("Failed to load labeled metrics: %v", err)
	}
	for _, values := range labeled {
		for command, value := range values {
			m.CommandsPerName.WithLabelValues(command).Add(value)
		}
	}

	log.Info("Metrics loaded from database.")
}

// SaveToDB writes the current counter values.
func (m *BotMetrics) SaveToDB(store Store) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	for name, counter := range m.counters() {
		if err := store.SaveMetric(name, GetMetricValue(counter)); err != nil {
			log.Errorf("Failed to save metric %s: %v", name, err)
		}
	}

	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		m.CommandsPerName.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read commands_per_name metric: %v", err)
			continue
		}
		var command string
		for _, label := range metricProto.Label {
			if label.GetName() == "command" {
				command = label.GetValue()
			}
		}
		if err := store.SaveMetricWithLabels("commands_per_name", "command", command, metricProto.Counter.GetValue()); err != nil {
			log.Errorf("Failed to save commands_per_name[%s]: %v", command, err)
		}
	}

	log.Info("Metrics saved to database.")
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Errorf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// NewServeMux exposes /metrics and /health.
func NewServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthCheckHandler)
	return mux
}

func LaunchMetricsAndHealthServer(port int) error {
	log.Infof("Launching metrics and health endpoint on :%d", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), NewServeMux())
}
