// Package metrics exposes Prometheus instruments for scrapes, the GitHub
// client and the watched-repo checker.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all gitreach metrics.
	Namespace = "gitreach"
)

// Metrics holds all Prometheus instruments. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	ScrapesStarted        *prometheus.CounterVec
	ScrapesFinished       *prometheus.CounterVec
	ScrapeDurationSeconds *prometheus.HistogramVec
	ContributorsEnriched  prometheus.Counter
	EnrichmentFailures    prometheus.Counter

	GitHubResponses *prometheus.CounterVec
	RateLimitWaits  prometheus.Counter

	WatchChecks            *prometheus.CounterVec
	WatchedNewContributors prometheus.Counter
	NotificationDeliveries *prometheus.CounterVec
}

// New creates and registers all metrics on reg, or the default registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	m := &Metrics{}

	m.initScrapeMetrics(factory)
	m.initGitHubMetrics(factory)
	m.initWatchMetrics(factory)

	return m
}

func (m *Metrics) initScrapeMetrics(factory promauto.Factory) {
	m.ScrapesStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scrape",
			Name:      "started_total",
			Help:      "Total number of scrapes started",
		},
		[]string{"type"},
	)

	m.ScrapesFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "scrape",
			Name:      "finished_total",
			Help:      "Total number of scrapes that reached a terminal state",
		},
		[]string{"type", "status"},
	)

	m.ScrapeDurationSeconds = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "scrape",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of scrapes",
			Buckets:   []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"type"},
	)

	m.ContributorsEnriched = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "scrape",
		Name:      "contributors_enriched_total",
		Help:      "Contributors whose profile and social accounts were fetched",
	})

	m.EnrichmentFailures = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "scrape",
		Name:      "enrichment_failures_total",
		Help:      "Contributors whose enrichment failed and were kept without contacts",
	})
}

func (m *Metrics) initGitHubMetrics(factory promauto.Factory) {
	m.GitHubResponses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "github",
			Name:      "responses_total",
			Help:      "GitHub API responses by status class",
		},
		[]string{"class"},
	)

	m.RateLimitWaits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "github",
		Name:      "rate_limit_waits_total",
		Help:      "Times a request blocked waiting for the rate limit to reset",
	})
}

func (m *Metrics) initWatchMetrics(factory promauto.Factory) {
	m.WatchChecks = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "watch",
			Name:      "checks_total",
			Help:      "Watched repository checks by result",
		},
		[]string{"result"},
	)

	m.WatchedNewContributors = factory.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "watch",
		Name:      "new_contributors_total",
		Help:      "New contributors discovered on watched repositories",
	})

	m.NotificationDeliveries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "watch",
			Name:      "notifications_total",
			Help:      "Webhook notification attempts by result",
		},
		[]string{"result"},
	)
}

// ScrapeStarted records a new scrape of the given type.
func (m *Metrics) ScrapeStarted(scrapeType string) {
	if m == nil {
		return
	}
	m.ScrapesStarted.WithLabelValues(scrapeType).Inc()
}

// ScrapeFinished records a terminal scrape and its duration.
func (m *Metrics) ScrapeFinished(scrapeType, status string, seconds float64) {
	if m == nil {
		return
	}
	m.ScrapesFinished.WithLabelValues(scrapeType, status).Inc()
	m.ScrapeDurationSeconds.WithLabelValues(scrapeType).Observe(seconds)
}

func (m *Metrics) ContributorEnriched() {
	if m == nil {
		return
	}
	m.ContributorsEnriched.Inc()
}

func (m *Metrics) EnrichmentFailed() {
	if m == nil {
		return
	}
	m.EnrichmentFailures.Inc()
}

// GitHubResponse records a response by status class, e.g. "2xx" or "429".
func (m *Metrics) GitHubResponse(statusCode int) {
	if m == nil {
		return
	}
	m.GitHubResponses.WithLabelValues(statusClass(statusCode)).Inc()
}

func (m *Metrics) RateLimitWaited() {
	if m == nil {
		return
	}
	m.RateLimitWaits.Inc()
}

func (m *Metrics) WatchChecked(result string, newContributors int) {
	if m == nil {
		return
	}
	m.WatchChecks.WithLabelValues(result).Inc()
	m.WatchedNewContributors.Add(float64(newContributors))
}

func (m *Metrics) NotificationSent(result string) {
	if m == nil {
		return
	}
	m.NotificationDeliveries.WithLabelValues(result).Inc()
}

// 429 is kept separate from other 4xx so throttling is visible on its own
func statusClass(code int) string {
	if code == 429 {
		return "429"
	}
	if code < 100 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
