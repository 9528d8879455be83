// Package telemetry instruments stores with Prometheus metrics: mutation
// counts by store and type, action counts by outcome, and action
// durations. Register it like any other plugin:
//
//	reg := strata.New(strata.WithPlugin(telemetry.New(
//	    telemetry.WithNamespace("myapp"),
//	)))
//	http.Handle("/metrics", promhttp.Handler())
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/strata-dev/strata"
)

// Config configures the metrics plugin.
type Config struct {
	// Namespace is the metrics namespace (default: "strata").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for action duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registerer to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Option configures the metrics plugin.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the action duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registerer.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "strata",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Plugin is a strata.Plugin collecting Prometheus metrics.
type Plugin struct {
	mutationsTotal *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	storesLive     prometheus.Gauge
}

// New creates the metrics plugin. Metric registration happens here, so
// create one plugin per Prometheus registerer.
func New(opts ...Option) *Plugin {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Plugin{
		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "mutations_total",
			Help:        "Total store mutations by store and mutation type",
			ConstLabels: cfg.ConstLabels,
		}, []string{"store", "type"}),

		actionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "actions_total",
			Help:        "Total store actions by store, action, and status",
			ConstLabels: cfg.ConstLabels,
		}, []string{"store", "action", "status"}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "action_duration_seconds",
			Help:        "Action body duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"store", "action"}),

		storesLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "stores_live",
			Help:        "Stores currently bound to instrumented registries",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Install implements strata.Plugin.
func (p *Plugin) Install(pc strata.PluginContext) error {
	id := pc.Store.ID()
	p.storesLive.Inc()
	pc.Store.OnDispose(p.storesLive.Dec)

	pc.Store.OnMutation(func(m strata.Mutation) {
		p.mutationsTotal.WithLabelValues(id, string(m.Type)).Inc()
	})

	pc.Store.OnAction(func(ev *strata.ActionEvent) {
		start := time.Now()
		ev.After(func() {
			p.actionDuration.WithLabelValues(id, ev.Name).Observe(time.Since(start).Seconds())
			p.actionsTotal.WithLabelValues(id, ev.Name, "success").Inc()
		})
		ev.OnError(func(error) {
			p.actionDuration.WithLabelValues(id, ev.Name).Observe(time.Since(start).Seconds())
			p.actionsTotal.WithLabelValues(id, ev.Name, "error").Inc()
		})
	})

	return nil
}

var _ strata.Plugin = (*Plugin)(nil)
