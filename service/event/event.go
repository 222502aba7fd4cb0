// Package event publishes job lifecycle notifications over messaging queues
// so that reporters can follow progress without touching the driver loop.
package event

import (
	"time"

	"github.com/viant/opflow/internal/clock"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeSubmitted Type = "submitted"
	TypeTick      Type = "tick"
	TypeCompleted Type = "completed"
	TypeFailed    Type = "failed"
	TypeCanceled  Type = "canceled"
)

// IsTerminal reports whether no further events follow for the job.
func (t Type) IsTerminal() bool {
	return t == TypeCompleted || t == TypeFailed || t == TypeCanceled
}

// Context identifies the job an event belongs to.
type Context struct {
	JobID       string `json:"jobID"`
	JobName     string `json:"jobName"`
	EventType   Type   `json:"eventType"`
	Tick        int    `json:"tick"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
