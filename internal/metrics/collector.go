package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the Prometheus instruments for formatting and memory
// compression. All methods are safe for concurrent use and nil-receiver
// tolerant, so callers can hold an optional *Collector without guarding
// every call site.
type Collector struct {
	formatTotal    *prometheus.CounterVec
	formatDuration *prometheus.HistogramVec

	compressionRuns      *prometheus.CounterVec
	compressionDuration  prometheus.Histogram
	offloadedMessages    prometheus.Counter
	summarizedMessages   prometheus.Counter
	workingMessages      prometheus.Gauge
	workingTokens        *prometheus.GaugeVec
	summarizerFailures   prometheus.Counter
	offloadStoreEntries  prometheus.Gauge
	offloadRetrievals    *prometheus.CounterVec
	compressionTriggered prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers the instruments under the given namespace on reg.
// Pass prometheus.DefaultRegisterer in production; tests inject a fresh
// registry so repeated construction does not panic on duplicate
// registration.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.formatTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "format_total",
			Help:      "Messages formatted for a provider",
		},
		[]string{"provider", "status"},
	)
	c.formatDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "format_duration_seconds",
			Help:      "Time spent formatting one message batch",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"provider"},
	)

	c.compressionTriggered = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_triggered_total",
			Help:      "Reads that found the working log over budget",
		},
	)
	c.compressionRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_strategy_runs_total",
			Help:      "Compression strategy executions by outcome",
		},
		[]string{"strategy", "outcome"},
	)
	c.compressionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_duration_seconds",
			Help:      "Time spent in one compression pass",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
	c.offloadedMessages = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offloaded_messages_total",
			Help:      "Messages replaced by previews and moved to the offload store",
		},
	)
	c.summarizedMessages = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarized_messages_total",
			Help:      "Messages collapsed into summaries",
		},
	)
	c.summarizerFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizer_failures_total",
			Help:      "Summarizer calls that failed and were skipped",
		},
	)
	c.workingMessages = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "working_messages",
			Help:      "Current size of the working log",
		},
	)
	c.workingTokens = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "working_tokens",
			Help:      "Estimated working log tokens before and after compression",
		},
		[]string{"phase"},
	)
	c.offloadStoreEntries = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offload_store_entries",
			Help:      "Entries currently held in the offload store",
		},
	)
	c.offloadRetrievals = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offload_retrievals_total",
			Help:      "Offload store lookups by result",
		},
		[]string{"result"},
	)

	return c
}

// RecordFormat counts one formatting call for a provider.
func (c *Collector) RecordFormat(provider string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.formatTotal.WithLabelValues(provider, status).Inc()
	c.formatDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordCompressionTriggered counts a read that started a compression pass.
func (c *Collector) RecordCompressionTriggered() {
	if c == nil {
		return
	}
	c.compressionTriggered.Inc()
}

// RecordStrategy counts one strategy execution. outcome is "progressed",
// "noop" or "failed".
func (c *Collector) RecordStrategy(strategy, outcome string) {
	if c == nil {
		return
	}
	c.compressionRuns.WithLabelValues(strategy, outcome).Inc()
}

// RecordCompressionPass records the wall time of a full compression pass.
func (c *Collector) RecordCompressionPass(duration time.Duration) {
	if c == nil {
		return
	}
	c.compressionDuration.Observe(duration.Seconds())
}

// RecordOffloaded counts messages moved to the offload store.
func (c *Collector) RecordOffloaded(n int) {
	if c == nil {
		return
	}
	c.offloadedMessages.Add(float64(n))
}

// RecordSummarized counts messages collapsed into summaries.
func (c *Collector) RecordSummarized(n int) {
	if c == nil {
		return
	}
	c.summarizedMessages.Add(float64(n))
}

// RecordSummarizerFailure counts a failed summarizer call.
func (c *Collector) RecordSummarizerFailure() {
	if c == nil {
		return
	}
	c.summarizerFailures.Inc()
}

// SetWorkingSize records the current working log length.
func (c *Collector) SetWorkingSize(n int) {
	if c == nil {
		return
	}
	c.workingMessages.Set(float64(n))
}

// SetWorkingTokens records estimated tokens for the given phase
// ("before" or "after").
func (c *Collector) SetWorkingTokens(phase string, tokens int) {
	if c == nil {
		return
	}
	c.workingTokens.WithLabelValues(phase).Set(float64(tokens))
}

// SetOffloadEntries records the current offload store size.
func (c *Collector) SetOffloadEntries(n int) {
	if c == nil {
		return
	}
	c.offloadStoreEntries.Set(float64(n))
}

// RecordOffloadRetrieval counts a lookup against the offload store.
func (c *Collector) RecordOffloadRetrieval(found bool) {
	if c == nil {
		return
	}
	result := "hit"
	if !found {
		result = "miss"
	}
	c.offloadRetrievals.WithLabelValues(result).Inc()
}
