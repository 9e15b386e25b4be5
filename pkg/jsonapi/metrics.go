package jsonapi

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "jsonapi_client"

// Metrics holds the Prometheus collectors fed from an EventBus.
type Metrics struct {
	// Fetch metrics
	FetchesTotal  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec

	// Result metrics
	ResultItems    *prometheus.CounterVec
	ExcludedByGate *prometheus.CounterVec
	MappingSeconds *prometheus.HistogramVec

	// Builder metrics
	ParamsAdded prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fetches_total",
				Help:      "Total number of JSON:API requests issued by queries",
			},
			[]string{"endpoint"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "fetch_duration_seconds",
				Help:      "JSON:API request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint"},
		),
		ResultItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "result_items_total",
				Help:      "Total number of mapped result items",
			},
			[]string{"endpoint"},
		),
		ExcludedByGate: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "excluded_by_gate_total",
				Help:      "Total number of entries excluded by a gate",
			},
			[]string{"endpoint"},
		),
		MappingSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "mapping_duration_seconds",
				Help:      "Time spent mapping one result page in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"endpoint"},
		),
		ParamsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "params_added_total",
				Help:      "Total number of query parameters registered",
			},
		),
	}
}

// Attach subscribes the collectors to bus and returns a function detaching them.
func (m *Metrics) Attach(bus *EventBus) func() {
	ids := []ListenerID{
		bus.On(EventParamAdded, func(Event) {
			m.ParamsAdded.Inc()
		}),
		bus.On(EventPostFetch, func(event Event) {
			endpoint := endpointLabel(event.Data["url"])
			m.FetchesTotal.WithLabelValues(endpoint).Inc()

			if duration, ok := event.Data["duration"].(time.Duration); ok {
				m.FetchDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
			}
		}),
		bus.On(EventResultSetReady, func(event Event) {
			meta, ok := event.Data["meta"].(ResultSetMeta)
			if !ok {
				return
			}

			endpoint := endpointLabel(meta.URL)
			items, _ := event.Data["items"].(int)

			m.ResultItems.WithLabelValues(endpoint).Add(float64(items))
			m.ExcludedByGate.WithLabelValues(endpoint).Add(float64(meta.ExcludedByGate))
			m.MappingSeconds.WithLabelValues(endpoint).Observe(meta.Performance.Mapping.Seconds())
		}),
	}

	return func() {
		for _, id := range ids {
			bus.Off(id)
		}
	}
}

// endpointLabel strips the query string to keep label cardinality bounded.
func endpointLabel(value any) string {
	url, _ := value.(string)

	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}

	return strings.TrimSuffix(url, "/")
}
