package driver

import (
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/dao"
	"github.com/viant/opflow/service/event"
	"github.com/viant/opflow/service/messaging"
	"go.uber.org/zap"
)

type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithWorkers sets the number of worker goroutines
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Workers = count
	}
}

// WithStore sets the job store
func WithStore(store dao.Service[string, Job]) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithQueue sets the ticket queue
func WithQueue(queue messaging.Queue[Ticket]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithPublisher sets the lifecycle event publisher
func WithPublisher(publisher *event.Publisher[JobEvent]) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// WithTracker sets the aggregated job counters
func WithTracker(tracker *progress.Tracker) Option {
	return func(s *Service) {
		s.tracker = tracker
	}
}

// WithArchive keeps a snapshot of every finished job in archive.
func WithArchive(archive dao.Service[string, Snapshot]) Option {
	return func(s *Service) {
		s.archive = archive
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}
