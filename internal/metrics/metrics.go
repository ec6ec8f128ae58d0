package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process counters and the registry they live in.
type Metrics struct {
	registry    *prometheus.Registry
	shortens    prometheus.Counter
	redirects   prometheus.Counter
	rateLimited prometheus.Counter
	httpStatus  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		shortens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortener_urls_created_total",
			Help: "Total number of short URLs created.",
		}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortener_redirects_total",
			Help: "Total number of successful redirects.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shortener_rate_limited_total",
			Help: "Total number of requests denied by rate limiting.",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shortener_http_responses_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
	}

	m.registry.MustRegister(
		m.shortens,
		m.redirects,
		m.rateLimited,
		m.httpStatus,
	)

	return m
}

func (m *Metrics) RecordShorten() {
	m.shortens.Inc()
}

func (m *Metrics) RecordRedirect() {
	m.redirects.Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) RecordHTTPStatus(statusCode int) {
	m.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler serves the Prometheus exposition for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TotalsSource is the subset of the store the aggregate collector
// reads on each scrape.
type TotalsSource interface {
	MappingTotals(ctx context.Context) (urls int64, clicks int64, err error)
	CountUsers(ctx context.Context) (int64, error)
}

// RegisterStoreCollector adds gauges for aggregate store counts,
// evaluated lazily on scrape.
func (m *Metrics) RegisterStoreCollector(source TotalsSource) {
	m.registry.MustRegister(&storeCollector{
		source: source,
		urls: prometheus.NewDesc(
			"shortener_mappings",
			"Number of stored short URL mappings.",
			nil, nil,
		),
		clicks: prometheus.NewDesc(
			"shortener_clicks",
			"Sum of click counts across all mappings.",
			nil, nil,
		),
		users: prometheus.NewDesc(
			"shortener_users",
			"Number of registered users.",
			nil, nil,
		),
	})
}

type storeCollector struct {
	source TotalsSource
	urls   *prometheus.Desc
	clicks *prometheus.Desc
	users  *prometheus.Desc
}

func (c *storeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.urls
	ch <- c.clicks
	ch <- c.users
}

func (c *storeCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	urls, clicks, err := c.source.MappingTotals(ctx)
	if err == nil {
		ch <- prometheus.MustNewConstMetric(c.urls, prometheus.GaugeValue, float64(urls))
		ch <- prometheus.MustNewConstMetric(c.clicks, prometheus.GaugeValue, float64(clicks))
	}

	users, err := c.source.CountUsers(ctx)
	if err == nil {
		ch <- prometheus.MustNewConstMetric(c.users, prometheus.GaugeValue, float64(users))
	}
}
