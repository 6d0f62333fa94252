package sparsecore

import (
	"context"
	"fmt"

	"github.com/viant/sparsecore/progress"
	"github.com/viant/sparsecore/runtime/execution"
	"github.com/viant/sparsecore/service/allocator"
	"github.com/viant/sparsecore/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Service owns one execution context configured from Config.
type Service struct {
	config   *Config
	strategy allocator.Strategy
	pool     *allocator.Pool
	exporter sdktrace.SpanExporter
	listener func(progress.Progress)
	context  *execution.Context
}

func (s *Service) init(options []Option) error {
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if err := s.initTracing(); err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	if err := s.ensureStrategy(); err != nil {
		return err
	}
	mode, _ := execution.ParseMode(s.config.Mode)
	contextOptions := []execution.Option{
		execution.WithStrategy(s.strategy),
		execution.WithAllocatorConfig(s.config.Allocator),
	}
	if s.listener != nil {
		contextOptions = append(contextOptions, execution.WithProgressListener(s.listener))
	}
	s.context = execution.New(contextOptions...)
	return s.context.Init(mode)
}

func (s *Service) initTracing() error {
	if s.exporter != nil {
		return tracing.InitWithExporter(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.exporter)
	}
	if !s.config.Tracing.Enabled {
		return nil
	}
	return tracing.Init(s.config.Tracing.ServiceName, s.config.Tracing.ServiceVersion, s.config.Tracing.OutputFile)
}

func (s *Service) ensureStrategy() error {
	if s.strategy != nil {
		return nil
	}
	var strategy allocator.Strategy = &allocator.Heap{Limit: s.config.HeapLimit}
	if s.config.Pool.Enabled {
		pool, err := allocator.NewPool(strategy, s.config.Pool)
		if err != nil {
			return err
		}
		s.pool = pool
		strategy = pool
	}
	s.strategy = strategy
	return nil
}

// Context returns the execution context.
func (s *Service) Context() *execution.Context {
	return s.context
}

// Config returns the effective configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Pool returns the pooling strategy, or nil when pooling is disabled.
func (s *Service) Pool() *allocator.Pool {
	return s.pool
}

// Shutdown completes pending work, then finalizes the context.  The
// context is finalized even when Wait fails; the first error is returned.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.context.State() != execution.StateInitialized {
		return nil
	}
	waitErr := s.context.Wait(ctx)
	finalizeErr := s.context.Finalize()
	if s.pool != nil {
		s.pool.Drain()
	}
	if waitErr != nil {
		return waitErr
	}
	return finalizeErr
}

// New creates a Service with an initialised execution context.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	if err := ret.init(options); err != nil {
		return nil, err
	}
	return ret, nil
}
