package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/viant/opflow/internal/idgen"
	"github.com/viant/opflow/service/messaging"
)

var errProcessed = errors.New("message already processed")

// Config for memory queue implementation
type Config struct {
	// MaxRetries is how many times a nacked message is redelivered.
	MaxRetries int `yaml:"maxRetries" json:"maxRetries"`
	// RetryDelay is the wait before a nacked message is redelivered.
	RetryDelay time.Duration `yaml:"retryDelay" json:"retryDelay"`
	// DeadLetter keeps messages that ran out of retries.
	DeadLetter bool `yaml:"deadLetter" json:"deadLetter"`
	// MaxSize bounds the number of queued messages; zero means unbounded.
	MaxSize int `yaml:"maxSize" json:"maxSize"`
}

// DefaultConfig returns a standard configuration for memory queue
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		DeadLetter: true,
	}
}

// Message is a queued payload.
type Message[T any] struct {
	id         string
	payload    T
	queue      *Queue[T]
	retryCount int
	mu         sync.Mutex
	processed  bool
	lastErr    error
}

// ID returns the message identifier, stable across redeliveries.
func (m *Message[T]) ID() string { return m.id }

// T returns the message payload
func (m *Message[T]) T() *T {
	return &m.payload
}

// Err returns the error passed to the last Nack.
func (m *Message[T]) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Ack acknowledges the message as processed successfully
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return errProcessed
	}
	m.processed = true
	return nil
}

// Nack schedules a redelivery, or moves the message to the dead letter list
// once retries are exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	if m.processed {
		m.mu.Unlock()
		return errProcessed
	}
	m.processed = true
	m.lastErr = err
	m.retryCount++
	retry := m.retryCount
	m.mu.Unlock()

	q := m.queue
	if retry > q.config.MaxRetries {
		q.deadLetter(m)
		return nil
	}
	redelivered := &Message[T]{id: m.id, payload: m.payload, queue: q, retryCount: retry, lastErr: err}
	time.AfterFunc(q.config.RetryDelay, func() {
		if pErr := q.push(redelivered); pErr != nil {
			q.deadLetter(redelivered)
		}
	})
	return nil
}

// Queue is an in-memory FIFO messaging.Queue safe for many producers and
// consumers.
type Queue[T any] struct {
	config    Config
	mu        sync.Mutex
	items     []*Message[T]
	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	dlqMu     sync.Mutex
	dlq       []*Message[T]
}

// NewQueue creates a new in-memory queue
func NewQueue[T any](config Config) *Queue[T] {
	return &Queue[T]{
		config: config,
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Publish adds a new item to the queue
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return q.push(&Message[T]{id: idgen.New(), payload: *t, queue: q})
}

func (q *Queue[T]) push(msg *Message[T]) error {
	select {
	case <-q.closed:
		return messaging.ErrClosed
	default:
	}
	q.mu.Lock()
	if q.config.MaxSize > 0 && len(q.items) >= q.config.MaxSize {
		q.mu.Unlock()
		return messaging.ErrFull
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()
	q.signal()
	return nil
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Consume retrieves a single item from the queue
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		select {
		case <-q.closed:
			return nil, messaging.ErrClosed
		default:
		}
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				q.signal()
			}
			return msg, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.closed:
			return nil, messaging.ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops delivery; blocked consumers return messaging.ErrClosed.
// Messages still queued are kept and reported by Size.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// Size returns the current number of messages in the queue
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) deadLetter(m *Message[T]) {
	if !q.config.DeadLetter {
		return
	}
	q.dlqMu.Lock()
	q.dlq = append(q.dlq, m)
	q.dlqMu.Unlock()
}

// DLQSize returns the number of messages in the dead letter queue
func (q *Queue[T]) DLQSize() int {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	return len(q.dlq)
}

// DeadLetters returns the payloads that ran out of retries.
func (q *Queue[T]) DeadLetters() []T {
	q.dlqMu.Lock()
	defer q.dlqMu.Unlock()
	out := make([]T, 0, len(q.dlq))
	for _, m := range q.dlq {
		out = append(out, m.payload)
	}
	return out
}

// ensure Queue implements messaging.Queue interface
var _ messaging.Queue[any] = (*Queue[any])(nil)
