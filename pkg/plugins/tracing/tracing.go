// Package tracing traces store actions with OpenTelemetry: one span per
// action invocation, named "<store>.<action>", with error recording and
// span status. The tracer comes from the global tracer provider, so
// configure that in main() before creating the registry.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strata-dev/strata"
)

const defaultTracerName = "strata"

// Config configures the tracing plugin.
type Config struct {
	// TracerName is the tracer name (default: "strata").
	TracerName string

	// Filter decides which actions to trace. nil traces everything.
	Filter func(storeID, action string) bool

	// AttributeExtractor contributes extra span attributes per action.
	AttributeExtractor func(ev *strata.ActionEvent) []attribute.KeyValue

	tracer trace.Tracer
}

// Option configures the tracing plugin.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) { c.TracerName = name }
}

// WithFilter sets an action filter.
func WithFilter(filter func(storeID, action string) bool) Option {
	return func(c *Config) { c.Filter = filter }
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(fn func(ev *strata.ActionEvent) []attribute.KeyValue) Option {
	return func(c *Config) { c.AttributeExtractor = fn }
}

// Plugin is a strata.Plugin emitting OpenTelemetry spans for actions.
type Plugin struct {
	cfg Config
}

// New creates the tracing plugin, resolving the tracer from the global
// provider.
func New(opts ...Option) *Plugin {
	cfg := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.tracer = otel.Tracer(cfg.TracerName)
	return &Plugin{cfg: cfg}
}

// Install implements strata.Plugin.
func (p *Plugin) Install(pc strata.PluginContext) error {
	storeID := pc.Store.ID()

	pc.Store.OnAction(func(ev *strata.ActionEvent) {
		if p.cfg.Filter != nil && !p.cfg.Filter(storeID, ev.Name) {
			return
		}

		attrs := []attribute.KeyValue{
			attribute.String("strata.store", storeID),
			attribute.String("strata.action", ev.Name),
			attribute.Int("strata.args", len(ev.Args)),
		}
		if p.cfg.AttributeExtractor != nil {
			attrs = append(attrs, p.cfg.AttributeExtractor(ev)...)
		}

		// Actions carry no caller context; spans are roots.
		_, span := p.cfg.tracer.Start(
			context.Background(),
			storeID+"."+ev.Name,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)

		ev.After(func() {
			span.SetStatus(codes.Ok, "")
			span.End()
		})
		ev.OnError(func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		})
	})

	return nil
}

var _ strata.Plugin = (*Plugin)(nil)
