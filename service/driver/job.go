package driver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/opflow/future"
	"github.com/viant/opflow/internal/clock"
	"github.com/viant/opflow/internal/idgen"
	"github.com/viant/opflow/operation"
	"github.com/viant/opflow/progress"
)

// State is the lifecycle state of a job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// IsTerminal reports whether the job has finished.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCanceled
}

// Job is one submitted operation graph.  Mutable fields are guarded by the
// job lock, which a worker holds for the whole tick.
type Job struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mux       sync.Mutex
	root      operation.Operation
	counter   operation.StepCounter
	ticks     int
	steps     int
	affected  int
	progress  progress.Progress
	messages  []string
	err       error
	updatedAt time.Time

	stateMux sync.RWMutex
	state    State

	cancelRequested atomic.Bool
	result          *future.Future[State]
}

// Ticket asks a worker to run one tick of a job.
type Ticket struct {
	JobID string
}

// Snapshot is a point-in-time copy of a job's status.
type Snapshot struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	State     State             `json:"state"`
	Ticks     int               `json:"ticks"`
	Steps     int               `json:"steps"`
	Affected  int               `json:"affected"`
	Progress  progress.Progress `json:"progress"`
	Messages  []string          `json:"messages,omitempty"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func newJob(name string, root operation.Operation) *Job {
	now := clock.Now()
	return &Job{
		ID:        idgen.NewWithPrefix(name),
		Name:      name,
		CreatedAt: now,
		updatedAt: now,
		root:      root,
		state:     StatePending,
		progress:  root.Progress(),
		result:    future.New[State](),
	}
}

// State returns the current lifecycle state without waiting for a tick.
func (j *Job) State() State {
	j.stateMux.RLock()
	defer j.stateMux.RUnlock()
	return j.state
}

func (j *Job) setState(state State) {
	j.stateMux.Lock()
	j.state = state
	j.stateMux.Unlock()
}

// Wait blocks until the job finishes or ctx is done and returns the final
// state with the failure, if any.
func (j *Job) Wait(ctx context.Context) (State, error) {
	return j.result.Get(ctx)
}

// Done is closed once the job has finished.
func (j *Job) Done() <-chan struct{} {
	return j.result.Done()
}

// Snapshot copies the job status.  It waits for a running tick to end.
func (j *Job) Snapshot() *Snapshot {
	j.mux.Lock()
	defer j.mux.Unlock()
	return j.snapshot()
}

func (j *Job) snapshot() *Snapshot {
	ret := &Snapshot{
		ID:        j.ID,
		Name:      j.Name,
		State:     j.State(),
		Ticks:     j.ticks,
		Steps:     j.steps,
		Affected:  j.affected,
		Progress:  j.progress,
		Messages:  append([]string(nil), j.messages...),
		UpdatedAt: j.updatedAt,
	}
	if j.err != nil {
		ret.Error = j.err.Error()
	}
	return ret
}

// observe refreshes status fields from the current root; callers hold mux.
func (j *Job) observe() {
	j.updatedAt = clock.Now()
	if j.root == nil {
		return
	}
	j.progress = j.root.Progress()
	j.messages = operation.StatusOf(j.root)
}

func jobKey(j *Job) string { return j.ID }

func jobState(j *Job) string { return string(j.State()) }

func snapshotKey(s *Snapshot) string { return s.ID }

func snapshotState(s *Snapshot) string { return string(s.State) }
