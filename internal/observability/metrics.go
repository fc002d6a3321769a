package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	httpDurationHistogram    *prometheus.HistogramVec
	ledgerOperationCounter   *prometheus.CounterVec
	pooledFundGauge          prometheus.Gauge
	customersRegistered      prometheus.Counter
	invariantViolationsCount prometheus.Counter
	workerRunCounter         *prometheus.CounterVec
	accessDeniedCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by ledger operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "operation", "status"})

		ledgerOperationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by outcome",
		}, []string{"operation", "result"})

		pooledFundGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_pooled_fund",
			Help: "Current amount held in the pooled fund",
		})

		customersRegistered = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_customers_registered_total",
			Help: "Customers registered since start",
		})

		invariantViolationsCount = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_invariant_violations_total",
			Help: "Accounts or fund states found outside their bounds by reconciliation",
		})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		accessDeniedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_access_denied_total",
			Help: "Requests refused by the access policy",
		}, []string{"operation", "reason"})

		prometheus.MustRegister(
			httpDurationHistogram,
			ledgerOperationCounter,
			pooledFundGauge,
			customersRegistered,
			invariantViolationsCount,
			workerRunCounter,
			accessDeniedCounter,
		)
	})
}

// ObserveHTTP records a request. Routes outside the access policy use the
// operation "none".
func ObserveHTTP(method, path, operation string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	if operation == "" {
		operation = "none"
	}
	httpDurationHistogram.WithLabelValues(method, path, operation, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementAccessDenied(operation, reason string) {
	if accessDeniedCounter == nil {
		return
	}
	accessDeniedCounter.WithLabelValues(operation, reason).Inc()
}

func IncrementLedgerOperation(operation, result string) {
	if ledgerOperationCounter == nil {
		return
	}
	ledgerOperationCounter.WithLabelValues(operation, result).Inc()
}

// SetPooledFund records the pool total. Precision beyond float64 is dropped.
func SetPooledFund(amount float64) {
	if pooledFundGauge == nil {
		return
	}
	pooledFundGauge.Set(amount)
}

func IncrementCustomersRegistered() {
	if customersRegistered == nil {
		return
	}
	customersRegistered.Inc()
}

func AddInvariantViolations(n int) {
	if invariantViolationsCount == nil || n <= 0 {
		return
	}
	invariantViolationsCount.Add(float64(n))
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
