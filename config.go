package opflow

import (
	"context"
	"fmt"

	"github.com/viant/opflow/internal/logging"
	"github.com/viant/opflow/service/driver"
	"github.com/viant/opflow/service/messaging/memory"
	"github.com/viant/opflow/service/meta"
	"github.com/viant/opflow/tracing"
)

// Config is a serialisable representation of the engine configuration.
// Sections missing from a loaded document keep their defaults.
type Config struct {
	Driver  driver.Config  `json:"driver" yaml:"driver"`
	Queue   memory.Config  `json:"queue" yaml:"queue"`
	Events  memory.Config  `json:"events" yaml:"events"`
	Log     logging.Config `json:"log" yaml:"log"`
	Tracing tracing.Config `json:"tracing" yaml:"tracing"`
	Archive ArchiveConfig  `json:"archive" yaml:"archive"`
}

// ArchiveConfig enables snapshot archiving of finished jobs.
type ArchiveConfig struct {
	// URL is any afs location, for example file:///var/opflow or
	// mem://localhost/opflow.  Empty disables the archive.
	URL string `json:"url" yaml:"url"`
}

// DefaultEventQueueSize bounds the job event queue; events published to a
// full queue are dropped.
const DefaultEventQueueSize = 1024

// DefaultConfig returns the defaults of every section.
func DefaultConfig() *Config {
	events := memory.DefaultConfig()
	events.MaxSize = DefaultEventQueueSize
	return &Config{
		Driver:  driver.DefaultConfig(),
		Queue:   memory.DefaultConfig(),
		Events:  events,
		Log:     logging.DefaultConfig(),
		Tracing: tracing.Config{ServiceName: "opflow"},
	}
}

// Validate returns an error describing the first invalid setting.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if err := c.Driver.Validate(); err != nil {
		return err
	}
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("queue.maxRetries must be >= 0")
	}
	if c.Queue.MaxSize < 0 {
		return fmt.Errorf("queue.maxSize must be >= 0")
	}
	if c.Events.MaxRetries < 0 {
		return fmt.Errorf("events.maxRetries must be >= 0")
	}
	if c.Events.MaxSize < 0 {
		return fmt.Errorf("events.maxSize must be >= 0")
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing.serviceName is required when tracing is enabled")
	}
	return nil
}

// LoadConfig reads a YAML or JSON document from URL on top of DefaultConfig.
// ${env.KEY} expressions are expanded before decoding.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if err := meta.New().Load(ctx, URL, ret); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
