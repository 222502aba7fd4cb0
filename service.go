package opflow

import (
	"context"
	"fmt"

	"github.com/viant/opflow/internal/logging"
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/dao"
	"github.com/viant/opflow/service/driver"
	"github.com/viant/opflow/service/event"
	"github.com/viant/opflow/service/messaging/memory"
	"github.com/viant/opflow/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Service wires a driver with its supporting services.
type Service struct {
	config   *Config
	driver   *driver.Service
	queue    *memory.Queue[driver.Ticket]
	store    dao.Service[string, driver.Job]
	archive  dao.Service[string, driver.Snapshot]
	events   *event.Service
	listener func(*event.Event[driver.JobEvent])
	tracker  *progress.Tracker
	logger   *zap.SugaredLogger
	exporter sdktrace.SpanExporter
	resource tracingResource
	tracing  bool
}

type tracingResource struct {
	name    string
	version string
}

// New creates a service; options are applied before Config is validated.
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(ret)
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *Service) init() error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	var err error
	if s.logger == nil {
		if s.logger, err = logging.New(s.config.Log); err != nil {
			return err
		}
	}
	if err = s.initTracing(); err != nil {
		return err
	}
	if s.tracker == nil {
		s.tracker = progress.NewTracker("opflow", nil)
	}
	// job events are only queued when something consumes them
	var publisher *event.Publisher[driver.JobEvent]
	if s.events == nil {
		events := s.config.Events
		s.events = event.New(event.WithLogger(s.logger),
			event.WithNewQueueConfig(func(string) memory.Config { return events }))
	} else {
		publisher = event.PublisherOf[driver.JobEvent](s.events)
	}
	if s.listener != nil {
		event.SetListenerOf[driver.JobEvent](s.events, s.listener)
		publisher = event.PublisherOf[driver.JobEvent](s.events)
	}
	if s.store == nil {
		s.store = driver.NewJobStore()
	}
	if s.archive == nil && s.config.Archive.URL != "" {
		archive, err := driver.NewArchive(context.Background(), s.config.Archive.URL)
		if err != nil {
			return err
		}
		s.archive = archive
	}
	s.queue = memory.NewQueue[driver.Ticket](s.config.Queue)

	options := []driver.Option{
		driver.WithConfig(s.config.Driver),
		driver.WithStore(s.store),
		driver.WithQueue(s.queue),
		driver.WithPublisher(publisher),
		driver.WithTracker(s.tracker),
		driver.WithLogger(s.logger),
	}
	if s.archive != nil {
		options = append(options, driver.WithArchive(s.archive))
	}
	if s.driver, err = driver.New(options...); err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}
	return nil
}

func (s *Service) initTracing() error {
	cfg := s.config.Tracing
	if s.resource.name != "" {
		cfg.ServiceName = s.resource.name
	}
	if s.resource.version != "" {
		cfg.ServiceVersion = s.resource.version
	}
	switch {
	case s.exporter != nil:
		s.tracing = true
		return tracing.Install(cfg, s.exporter)
	case cfg.Enabled:
		s.tracing = true
		return tracing.Setup(cfg)
	}
	return nil
}

// Driver returns the job driver.
func (s *Service) Driver() *driver.Service { return s.driver }

// Tracker returns the aggregated job counters.
func (s *Service) Tracker() *progress.Tracker { return s.tracker }

// Events returns the event service.  driver.JobEvent events reach it only
// when a job listener or an external event service was configured.
func (s *Service) Events() *event.Service { return s.events }

func (s *Service) Logger() *zap.SugaredLogger { return s.logger }

// Config returns the effective configuration.
func (s *Service) Config() *Config { return s.config }

// Start launches the driver workers.
func (s *Service) Start(ctx context.Context) error {
	return s.driver.Start(ctx)
}

// Shutdown stops the driver, then the event listeners, and flushes tracing
// and logs.
func (s *Service) Shutdown() {
	s.driver.Shutdown()
	s.queue.Close()
	s.events.Close()
	if s.tracing {
		if err := tracing.Shutdown(context.Background()); err != nil {
			s.logger.Warnw("failed to shut down tracing", "error", err)
		}
	}
	_ = s.logger.Sync()
}
