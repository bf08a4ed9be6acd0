package lookup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// outcomesTotal counts finished tasks by fetcher, final state and failure kind
	outcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bib_lookup_outcomes_total",
		Help: "Finished identifier lookups by fetcher, state and failure kind",
	}, []string{"fetcher", "state", "kind"})

	// lookupDuration tracks wall time from Start to outcome
	lookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bib_lookup_duration_seconds",
		Help:    "Identifier lookup duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
	}, []string{"fetcher"})
)

func observe(o Outcome) {
	kind := ""
	if o.Failure != nil {
		kind = o.Failure.Kind.String()
	}
	outcomesTotal.WithLabelValues(o.FetcherName, o.State.String(), kind).Inc()
	lookupDuration.WithLabelValues(o.FetcherName).Observe(o.Elapsed.Seconds())
}

// WriteMetrics writes the process's registered metrics to path in the text
// exposition format, for node_exporter's textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
