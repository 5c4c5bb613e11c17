package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the report pipeline.
type Metrics struct {
	SubmitsTotal       *prometheus.CounterVec
	SubmitDuration     *prometheus.HistogramVec
	PrefilterTotal     *prometheus.CounterVec
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	GeocodeTotal       *prometheus.CounterVec
	RoutesTotal        *prometheus.CounterVec
	StoreAppendsTotal  *prometheus.CounterVec
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SubmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_submits_total",
			Help: "Total report submissions by result.",
		}, []string{"result"}),
		SubmitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_submit_duration_seconds",
			Help:    "End-to-end duration of report pipeline runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms .. ~200s
		}, []string{"result"}),
		PrefilterTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_prefilter_total",
			Help: "Keyword prefilter verdicts.",
		}, []string{"verdict"}),
		CompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_completions_total",
			Help: "Completion service calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		CompletionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "beacon_completion_duration_seconds",
			Help:    "Duration of individual completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"op"}),
		GeocodeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_geocode_total",
			Help: "Geocoding resolutions by outcome.",
		}, []string{"outcome"}),
		RoutesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_routes_total",
			Help: "Report routing decisions by target stream.",
		}, []string{"target"}),
		StoreAppendsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "beacon_store_appends_total",
			Help: "Event store appends by stream and outcome.",
		}, []string{"stream", "outcome"}),
	}

	reg.MustRegister(
		m.SubmitsTotal,
		m.SubmitDuration,
		m.PrefilterTotal,
		m.CompletionsTotal,
		m.CompletionDuration,
		m.GeocodeTotal,
		m.RoutesTotal,
		m.StoreAppendsTotal,
	)

	return m
}

// Hooks returns EngineHooks that feed the completion and geocode metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnCompletion: func(op string, duration float64, outcome string) {
			m.CompletionsTotal.WithLabelValues(op, outcome).Inc()
			m.CompletionDuration.WithLabelValues(op).Observe(duration)
		},
		OnGeocode: func(outcome string) {
			m.GeocodeTotal.WithLabelValues(outcome).Inc()
		},
	}
}
