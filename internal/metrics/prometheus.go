package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrsell_scans_total",
		Help: "Total promotion QR scans by outcome",
	}, []string{"outcome"})

	ActivationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrsell_activations_total",
		Help: "Total promotion windows opened",
	})

	ActivationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrsell_activation_conflicts_total",
		Help: "Activation races lost and resolved by re-reading the winner",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qrsell_active_sessions",
		Help: "Current number of open promotion windows",
	})

	FeaturedSelections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrsell_featured_selections_total",
		Help: "Featured product resolutions by reason",
	}, []string{"reason"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "qrsell_session_resolve_duration_seconds",
		Help:    "Time to resolve or create a promotion session",
		Buckets: prometheus.DefBuckets,
	})

	ScanEventsPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrsell_scan_events_pruned_total",
		Help: "Scan events removed by the retention job",
	})
)

func IncScan(outcome string) {
	label := strings.TrimSpace(outcome)
	if label == "" {
		label = "unknown"
	}
	ScansTotal.WithLabelValues(label).Inc()
}

func IncActivation() {
	ActivationsTotal.Inc()
}

func IncActivationConflict() {
	ActivationConflicts.Inc()
}

func SetActiveSessions(count int64) {
	if count < 0 {
		count = 0
	}
	ActiveSessions.Set(float64(count))
}

func IncFeaturedSelection(reason string) {
	label := strings.TrimSpace(reason)
	if label == "" {
		label = "none"
	}
	FeaturedSelections.WithLabelValues(label).Inc()
}

func ObserveResolveDuration(duration time.Duration) {
	ResolveDuration.Observe(duration.Seconds())
}

func AddScanEventsPruned(count int64) {
	if count > 0 {
		ScanEventsPruned.Add(float64(count))
	}
}
