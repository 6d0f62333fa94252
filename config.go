package sparsecore

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/sparsecore/runtime/execution"
	"github.com/viant/sparsecore/service/allocator"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the runtime configuration. It
// can be populated from JSON or YAML; zero-valued fields inherit their
// package defaults.
type Config struct {
	Mode      string               `json:"mode,omitempty" yaml:"mode,omitempty"`
	HeapLimit uint64               `json:"heapLimit,omitempty" yaml:"heapLimit,omitempty"`
	Allocator allocator.Config     `json:"allocator" yaml:"allocator"`
	Pool      allocator.PoolConfig `json:"pool" yaml:"pool"`
	Tracing   TracingConfig        `json:"tracing" yaml:"tracing"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled        bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config with non-blocking mode, no heap limit and
// pooling disabled.
func DefaultConfig() *Config {
	return &Config{
		Mode:      execution.NonBlocking.String(),
		Allocator: allocator.DefaultConfig(),
		Pool:      allocator.DefaultPoolConfig(),
		Tracing: TracingConfig{
			ServiceName:    "sparsecore",
			ServiceVersion: "dev",
		},
	}
}

// Validate returns an error describing the first invalid setting, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if _, err := execution.ParseMode(c.Mode); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if c.Allocator.MaxIndex > allocator.MaxIndex {
		return fmt.Errorf("allocator.maxIndex %d exceeds %d", c.Allocator.MaxIndex, allocator.MaxIndex)
	}
	if c.Pool.Enabled {
		if err := c.Pool.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadConfig reads a YAML config from URL over any afs-supported scheme
// (file, mem, embed, ...).  Fields absent from the document keep their
// DefaultConfig values.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	config := DefaultConfig()
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return config, nil
}
