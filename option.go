package sparsecore

import (
	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/runtime/execution"
	"github.com/viant/sparsecore/service/allocator"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option configures a Service
type Option func(s *Service)

// WithConfig replaces the whole configuration; options applied after it
// still override individual settings.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithMode sets the evaluation mode the context is initialised in.
func WithMode(mode execution.Mode) Option {
	return func(s *Service) {
		s.config.Mode = mode.String()
	}
}

// WithStrategy sets the memory strategy, bypassing the heap and pool
// settings of the configuration.  The strategy is shared by every
// lifecycle of the context, so a Faulty strategy keeps failing after Init.
func WithStrategy(strategy allocator.Strategy) Option {
	return func(s *Service) {
		s.strategy = strategy
	}
}

// WithPool enables size-class pooling with the supplied settings.
func WithPool(config allocator.PoolConfig) Option {
	return func(s *Service) {
		config.Enabled = true
		s.config.Pool = config
	}
}

// WithProgressListener registers a callback invoked whenever the deferred
// work counters change.
func WithProgressListener(fn func(progress.Progress)) Option {
	return func(s *Service) {
		s.listener = fn
	}
}

// WithTracing configures OpenTelemetry tracing for the service. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file path. The first
// successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		s.config.Tracing = TracingConfig{
			Enabled:        true,
			ServiceName:    serviceName,
			ServiceVersion: serviceVersion,
			OutputFile:     outputFile,
		}
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter, for example
// OTLP, Jaeger or Zipkin. The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.config.Tracing.ServiceName = serviceName
		s.config.Tracing.ServiceVersion = serviceVersion
		s.exporter = exporter
	}
}
