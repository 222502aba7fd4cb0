package event

import (
	"reflect"
	"sync"

	"github.com/viant/opflow/service/messaging/memory"
	"go.uber.org/zap"
)

// Service keeps one queue, publisher and listener per event payload type.
type Service struct {
	newQueueConfig func(name string) memory.Config
	logger         *zap.SugaredLogger
	publishers     map[reflect.Type]any
	listeners      map[reflect.Type]stopper
	closers        []func()
	mux            sync.RWMutex
}

type stopper interface{ Stop() }

type Option func(s *Service)

// WithNewQueueConfig sets the factory of per-type queue configuration.
func WithNewQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.newQueueConfig = newConfig
	}
}

// WithLogger sets the logger used by listeners.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(opts ...Option) *Service {
	ret := &Service{
		newQueueConfig: func(string) memory.Config { return memory.DefaultConfig() },
		logger:         zap.NewNop().Sugar(),
		publishers:     make(map[reflect.Type]any),
		listeners:      make(map[reflect.Type]stopper),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func keyOf[T any]() reflect.Type {
	var t T
	rType := reflect.TypeOf(t)
	if rType != nil && rType.Kind() == reflect.Ptr {
		rType = rType.Elem()
	}
	return rType
}

// PublisherOf returns the publisher for payload type T, creating it on first
// use.
func PublisherOf[T any](s *Service) *Publisher[T] {
	key := keyOf[T]()
	s.mux.RLock()
	ret, ok := s.publishers[key]
	s.mux.RUnlock()
	if ok {
		return ret.(*Publisher[T])
	}

	s.mux.Lock()
	defer s.mux.Unlock()
	if ret, ok = s.publishers[key]; ok {
		return ret.(*Publisher[T])
	}
	queue := memory.NewQueue[Event[T]](s.newQueueConfig(key.String()))
	publisher := NewPublisher[T](queue)
	s.publishers[key] = publisher
	s.closers = append(s.closers, queue.Close)
	return publisher
}

// SetListenerOf replaces the listener for payload type T.
func SetListenerOf[T any](s *Service, handler func(*Event[T])) {
	key := keyOf[T]()
	publisher := PublisherOf[T](s)
	listener := NewListener[T](publisher, handler, s.logger)

	s.mux.Lock()
	previous := s.listeners[key]
	s.listeners[key] = listener
	s.mux.Unlock()

	if previous != nil {
		previous.Stop()
	}
	listener.Start()
}

// Close stops every listener and closes every queue.
func (s *Service) Close() {
	s.mux.Lock()
	listeners := s.listeners
	closers := s.closers
	s.listeners = make(map[reflect.Type]stopper)
	s.closers = nil
	s.mux.Unlock()

	for _, l := range listeners {
		l.Stop()
	}
	for _, closeFn := range closers {
		closeFn()
	}
}
