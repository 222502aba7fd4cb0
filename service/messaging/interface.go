// Package messaging abstracts the queue that hands job tickets to driver
// workers.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by queues that no longer accept or deliver
	// messages.
	ErrClosed = errors.New("messaging: queue closed")

	// ErrFull is returned when a bounded queue cannot take more messages.
	ErrFull = errors.New("messaging: queue full")
)

// Queue represents an abstract message queue for any payload type
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume blocks until a message is available, ctx is done or the queue
	// is closed.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}
