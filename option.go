package opflow

import (
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/dao"
	"github.com/viant/opflow/service/driver"
	"github.com/viant/opflow/service/event"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Option customises the Service.
type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithLogger sets the logger instead of building one from Config.Log.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithTracker sets the aggregated job counters.
func WithTracker(tracker *progress.Tracker) Option {
	return func(s *Service) { s.tracker = tracker }
}

// WithEventService sets the event service; driver.JobEvent events are
// published to it whether or not a listener is set.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.events = service }
}

// WithJobStore sets the store of submitted jobs.
func WithJobStore(store dao.Service[string, driver.Job]) Option {
	return func(s *Service) { s.store = store }
}

// WithArchive sets the store of finished job snapshots, overriding
// Config.Archive.
func WithArchive(archive dao.Service[string, driver.Snapshot]) Option {
	return func(s *Service) { s.archive = archive }
}

// WithJobListener receives every driver lifecycle event.
func WithJobListener(listener func(*event.Event[driver.JobEvent])) Option {
	return func(s *Service) { s.listener = listener }
}

// WithTracingExporter installs OpenTelemetry tracing with a custom exporter,
// for example OTLP or an in-memory exporter in tests.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		s.exporter = exporter
		s.resource = tracingResource{name: serviceName, version: serviceVersion}
	}
}
