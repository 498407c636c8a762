// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "flywheel"

// Collector хранит метрики флайвила. Все методы безопасны для nil-получателя,
// поэтому компоненты работают и без метрик.
type Collector struct {
	runs         *prometheus.CounterVec
	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	transactions *prometheus.CounterVec
	txDuration   *prometheus.HistogramVec
	lastRun      prometheus.Gauge
	leaseDenied  prometheus.Counter
}

// NewCollector регистрирует метрики в reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by result",
		}, []string{"result"}),
		steps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Step outcomes by step and status",
		}, []string{"step", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Step duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"step"}),
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Submitted transactions by kind and result",
		}, []string{"kind", "result"}),
		txDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transaction_duration_seconds",
			Help:      "Send and confirm duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"kind"}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last finished run",
		}),
		leaseDenied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lease_denied_total",
			Help:      "Triggers rejected because another run held the lease",
		}),
	}
}

// ObserveRun записывает завершённый запуск.
func (c *Collector) ObserveRun(result string, finished time.Time) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(result).Inc()
	c.lastRun.Set(float64(finished.Unix()))
}

// ObserveStep записывает исход шага и его длительность.
func (c *Collector) ObserveStep(step, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.steps.WithLabelValues(step, status).Inc()
	c.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// ObserveTx записывает итог отправки транзакции.
func (c *Collector) ObserveTx(kind, result string, duration time.Duration) {
	if c == nil {
		return
	}
	c.transactions.WithLabelValues(kind, result).Inc()
	c.txDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// LeaseDenied отмечает запуск, отклонённый из-за занятой аренды.
func (c *Collector) LeaseDenied() {
	if c == nil {
		return
	}
	c.leaseDenied.Inc()
}
