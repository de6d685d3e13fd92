package ledger

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector records operational counters from the service.
type MetricsCollector interface {
	RecordTransactionFailure(collection string)
	RecordReceiptLogged()
	RecordImport()
	RecordExport()
}

// NopCollector discards every metric. Used in tests and when no
// registry is wired up.
type NopCollector struct{}

func (NopCollector) RecordTransactionFailure(collection string) {}
func (NopCollector) RecordReceiptLogged()                       {}
func (NopCollector) RecordImport()                              {}
func (NopCollector) RecordExport()                              {}

// Collector implements MetricsCollector on Prometheus counters.
type Collector struct {
	txFailures     *prometheus.CounterVec
	receiptsLogged prometheus.Counter
	imports        prometheus.Counter
	exports        prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics on the
// given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		txFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "essentials_ledger_transaction_failures_total",
			Help: "Failed storage transactions by collection",
		}, []string{"collection"}),
		receiptsLogged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "essentials_ledger_receipts_logged_total",
			Help: "Receipts logged",
		}),
		imports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "essentials_ledger_imports_total",
			Help: "Successful dataset imports",
		}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "essentials_ledger_exports_total",
			Help: "Dataset exports produced",
		}),
	}

	reg.MustRegister(c.txFailures, c.receiptsLogged, c.imports, c.exports)
	return c
}

// RecordTransactionFailure counts a failed storage transaction.
func (c *Collector) RecordTransactionFailure(collection string) {
	c.txFailures.WithLabelValues(collection).Inc()
}

// RecordReceiptLogged counts a logged receipt.
func (c *Collector) RecordReceiptLogged() {
	c.receiptsLogged.Inc()
}

// RecordImport counts a successful import.
func (c *Collector) RecordImport() {
	c.imports.Inc()
}

// RecordExport counts a produced export.
func (c *Collector) RecordExport() {
	c.exports.Inc()
}

// MetricsHandler returns the Prometheus scrape handler.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
