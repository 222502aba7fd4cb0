package driver

import (
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/event"
)

// JobEvent is the payload of driver lifecycle events.
type JobEvent struct {
	State    State             `json:"state"`
	Progress progress.Progress `json:"progress"`
	Steps    int               `json:"steps"`
	Affected int               `json:"affected"`
	Messages []string          `json:"messages,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func newJobEvent(eventType event.Type, job *Job, tickSteps, tickAffected int, elapsedMs int) *event.Event[JobEvent] {
	data := JobEvent{
		State:    job.State(),
		Progress: job.progress,
		Steps:    tickSteps,
		Affected: tickAffected,
		Messages: append([]string(nil), job.messages...),
	}
	if job.err != nil {
		data.Error = job.err.Error()
	}
	return event.NewEvent(&event.Context{
		JobID:       job.ID,
		JobName:     job.Name,
		EventType:   eventType,
		Tick:        job.ticks,
		TimeTakenMs: elapsedMs,
	}, data)
}
