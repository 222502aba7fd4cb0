package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/viant/opflow/internal/clock"
	"github.com/viant/opflow/operation"
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/dao"
	"github.com/viant/opflow/service/event"
	"github.com/viant/opflow/service/messaging"
	"github.com/viant/opflow/tracing"
	"go.uber.org/zap"
)

// Service drives submitted jobs in bounded ticks.
type Service struct {
	config    Config
	store     dao.Service[string, Job]
	archive   dao.Service[string, Snapshot]
	queue     messaging.Queue[Ticket]
	publisher *event.Publisher[JobEvent]
	tracker   *progress.Tracker
	logger    *zap.SugaredLogger

	mux      sync.Mutex
	started  bool
	stopped  bool
	cancelFn context.CancelFunc
	workerWg sync.WaitGroup
}

// New creates a driver; a store and a queue are required.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config: DefaultConfig(),
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.store == nil {
		return nil, fmt.Errorf("driver: job store is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("driver: ticket queue is required")
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.config }

// Start launches the workers.  They stop when ctx is done or on Shutdown.
func (s *Service) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}
	s.started = true
	ctx, s.cancelFn = context.WithCancel(ctx)
	for i := 0; i < s.config.Workers; i++ {
		s.workerWg.Add(1)
		go s.work(ctx, i)
	}
	s.logger.Infow("driver started", "workers", s.config.Workers, "tickBudget", s.config.TickBudget, "stepsPerTick", s.config.StepsPerTick)
	return nil
}

func (s *Service) work(ctx context.Context, id int) {
	defer s.workerWg.Done()
	for {
		msg, err := s.queue.Consume(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, messaging.ErrClosed) {
				return
			}
			s.logger.Warnw("failed to consume ticket", "worker", id, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if msg == nil {
			continue
		}
		if err = s.process(ctx, msg); err != nil {
			s.logger.Errorw("failed to process ticket", "worker", id, "error", err)
		}
	}
}

// Submit stores a job for op and schedules its first tick.
func (s *Service) Submit(ctx context.Context, name string, op operation.Operation) (*Job, error) {
	if op == nil {
		return nil, fmt.Errorf("driver: submit %q: %w", name, operation.ErrInvalidArgument)
	}
	s.mux.Lock()
	stopped := s.stopped
	s.mux.Unlock()
	if stopped {
		return nil, ErrStopped
	}

	job := newJob(name, op)
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("driver: failed to save job %v: %w", job.ID, err)
	}
	s.tracker.Update(progress.Delta{Total: 1, Pending: 1})
	s.publish(ctx, newJobEvent(event.TypeSubmitted, job, 0, 0, 0))
	if err := s.queue.Publish(ctx, &Ticket{JobID: job.ID}); err != nil {
		err = fmt.Errorf("driver: failed to schedule job %v: %w", job.ID, err)
		s.unschedule(ctx, job, err)
		return nil, err
	}
	s.logger.Debugw("job submitted", "job", job.ID, "name", name)
	return job, nil
}

// Cancel requests cancellation; the job's next tick cancels its graph.
// Cancelling a finished job is a no-op.
func (s *Service) Cancel(ctx context.Context, jobID string) error {
	job, err := s.load(ctx, jobID)
	if err != nil {
		return err
	}
	if job.State().IsTerminal() {
		return nil
	}
	job.cancelRequested.Store(true)
	return nil
}

// Status returns a snapshot of the job.  Purged jobs are looked up in the
// archive.
func (s *Service) Status(ctx context.Context, jobID string) (*Snapshot, error) {
	job, err := s.load(ctx, jobID)
	if err == nil {
		return job.Snapshot(), nil
	}
	if s.archive == nil || !errors.Is(err, ErrJobNotFound) {
		return nil, err
	}
	snapshot, archiveErr := s.archive.Load(ctx, jobID)
	if archiveErr != nil {
		if errors.Is(archiveErr, dao.ErrNotFound) {
			return nil, err
		}
		return nil, archiveErr
	}
	return snapshot, nil
}

// History lists archived snapshots, optionally restricted to states.
func (s *Service) History(ctx context.Context, states ...State) ([]*Snapshot, error) {
	if s.archive == nil {
		return nil, nil
	}
	return s.archive.List(ctx, stateParameters(states)...)
}

// Purge drops finished jobs from the job store and returns how many were
// removed.  Archived snapshots are kept.
func (s *Service) Purge(ctx context.Context) (int, error) {
	finished, err := s.Jobs(ctx, StateCompleted, StateFailed, StateCanceled)
	if err != nil {
		return 0, err
	}
	for i, job := range finished {
		if err = s.store.Delete(ctx, job.ID); err != nil && !errors.Is(err, dao.ErrNotFound) {
			return i, fmt.Errorf("driver: failed to purge job %v: %w", job.ID, err)
		}
	}
	return len(finished), nil
}

// Job returns the submitted job.
func (s *Service) Job(ctx context.Context, jobID string) (*Job, error) {
	return s.load(ctx, jobID)
}

// Jobs lists jobs, optionally restricted to the given states.
func (s *Service) Jobs(ctx context.Context, states ...State) ([]*Job, error) {
	return s.store.List(ctx, stateParameters(states)...)
}

func stateParameters(states []State) []*dao.Parameter {
	if len(states) == 0 {
		return nil
	}
	values := make([]string, len(states))
	for i, state := range states {
		values[i] = string(state)
	}
	return []*dao.Parameter{dao.WithState(values...)}
}

// Run builds a graph, submits it and waits for it.  A failed attempt is
// retried with a freshly built graph up to MaxAttempts times; operations
// themselves never retry.  Cancellation is not retried.
func (s *Service) Run(ctx context.Context, name string, build func() (operation.Operation, error)) (*Job, error) {
	var job *Job
	err := retry.Do(func() error {
		op, err := build()
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if job, err = s.Submit(ctx, name, op); err != nil {
			if errors.Is(err, ErrStopped) || errors.Is(err, operation.ErrInvalidArgument) {
				return retry.Unrecoverable(err)
			}
			return err
		}
		state, err := job.Wait(ctx)
		if state == StateCanceled {
			return retry.Unrecoverable(err)
		}
		return err
	},
		retry.Context(ctx),
		retry.Attempts(uint(s.config.MaxAttempts)),
		retry.Delay(s.config.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			s.logger.Warnw("job attempt failed, retrying", "name", name, "attempt", attempt+1, "error", err)
		}),
	)
	return job, err
}

// Shutdown stops the workers after their current tick.  Tickets still on
// the queue are left in place.
func (s *Service) Shutdown() {
	s.mux.Lock()
	s.stopped = true
	cancel := s.cancelFn
	s.mux.Unlock()
	if cancel != nil {
		cancel()
	}
	s.workerWg.Wait()
	s.logger.Infow("driver stopped")
}

func (s *Service) load(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.store.Load(ctx, jobID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrJobNotFound, jobID)
		}
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %v", ErrJobNotFound, jobID)
	}
	return job, nil
}

func (s *Service) process(ctx context.Context, msg messaging.Message[Ticket]) error {
	ticket := msg.T()
	job, err := s.load(ctx, ticket.JobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			s.logger.Warnw("dropping ticket of unknown job", "job", ticket.JobID)
			return msg.Ack()
		}
		return msg.Nack(err)
	}
	if s.tick(ctx, job) {
		// shutdown must not drop the ticket of an unfinished job
		if err = s.queue.Publish(context.WithoutCancel(ctx), &Ticket{JobID: job.ID}); err != nil {
			err = fmt.Errorf("failed to reschedule job %v: %w", job.ID, err)
			s.abandon(ctx, job, err)
		}
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return ackErr
	}
	return err
}

// unschedule removes a job whose first ticket could not be published.
func (s *Service) unschedule(ctx context.Context, job *Job, err error) {
	s.tracker.Update(progress.Delta{Total: -1, Pending: -1})
	ctx = context.WithoutCancel(ctx)
	if delErr := s.store.Delete(ctx, job.ID); delErr != nil {
		s.logger.Errorw("failed to remove unscheduled job", "job", job.ID, "error", delErr)
	}
	job.mux.Lock()
	job.err = err
	job.root = nil
	job.setState(StateFailed)
	job.mux.Unlock()
	s.publish(ctx, newJobEvent(event.TypeFailed, job, 0, 0, 0))
	job.result.Resolve(StateFailed, err)
}

// abandon fails a job that can no longer be scheduled.
func (s *Service) abandon(ctx context.Context, job *Job, err error) {
	job.mux.Lock()
	defer job.mux.Unlock()
	if job.State().IsTerminal() {
		return
	}
	if job.root != nil {
		job.root.Cancel()
	}
	job.observe()
	s.finish(ctx, job, StateFailed, err, 0, 0, clock.Now())
}

// tick resumes the job root within one budget and reports whether the job
// needs another tick.
func (s *Service) tick(ctx context.Context, job *Job) (again bool) {
	job.mux.Lock()
	defer job.mux.Unlock()
	if job.State().IsTerminal() {
		return false
	}

	started := clock.Now()
	if job.State() == StatePending {
		job.setState(StateRunning)
		s.tracker.Update(progress.Delta{Pending: -1, Running: 1})
	}
	job.ticks++

	ctx, span := tracing.StartTick(ctx, job.ID, job.Name, job.ticks)
	var tickErr error
	affected := 0
	defer func() {
		span.Set(tracing.Affected.Int(affected))
		span.End(tickErr)
	}()

	if job.cancelRequested.Load() {
		s.cancel(ctx, job)
		return false
	}

	run := operation.NewRunContext(ctx,
		operation.WithBudget(s.config.TickBudget),
		operation.WithStepLimit(s.config.StepsPerTick))
	defer func() { span.Set(tracing.TickSteps.Int(run.Steps())) }()
	for run.Step() {
		op := job.root
		signal, err := op.Resume(run)
		affected += job.counter.Read(op)
		if err != nil {
			tickErr = err
			if s.config.CancelOnFailure {
				op.Cancel()
			}
			job.observe()
			s.finish(ctx, job, StateFailed, err, run.Steps(), affected, started)
			return false
		}
		switch signal.Kind() {
		case operation.KindDone:
			s.finish(ctx, job, StateCompleted, nil, run.Steps(), affected, started)
			return false
		case operation.KindReplace:
			job.root = signal.Next(op)
			job.counter.Reset()
		}
		if job.cancelRequested.Load() {
			break
		}
	}
	job.steps += run.Steps()
	job.affected += affected
	job.observe()
	s.tracker.Update(progress.Delta{Affected: affected})
	s.publish(ctx, newJobEvent(event.TypeTick, job, run.Steps(), affected, elapsedMs(started)))
	return true
}

// cancel cancels the graph and grants it one step to observe cancellation.
func (s *Service) cancel(ctx context.Context, job *Job) {
	started := clock.Now()
	job.root.Cancel()
	run := operation.NewRunContext(ctx, operation.WithStepLimit(1))
	affected := 0
	if run.Step() {
		op := job.root
		if _, err := op.Resume(run); err != nil {
			s.logger.Debugw("canceled job step failed", "job", job.ID, "error", err)
		}
		affected = job.counter.Read(op)
	}
	job.observe()
	s.finish(ctx, job, StateCanceled, operation.ErrCanceled, run.Steps(), affected, started)
}

// finish records the terminal state; callers hold the job lock.
func (s *Service) finish(ctx context.Context, job *Job, state State, err error, steps, affected int, started time.Time) {
	job.steps += steps
	job.affected += affected
	job.err = err
	job.root = nil
	if state == StateCompleted {
		job.progress = progress.Completed()
		job.messages = nil
	}
	job.updatedAt = clock.Now()
	job.setState(state)
	if saveErr := s.store.Save(ctx, job); saveErr != nil {
		s.logger.Errorw("failed to save job", "job", job.ID, "error", saveErr)
	}
	if s.archive != nil {
		if saveErr := s.archive.Save(ctx, job.snapshot()); saveErr != nil {
			s.logger.Errorw("failed to archive job", "job", job.ID, "error", saveErr)
		}
	}

	delta := progress.Delta{Running: -1, Affected: affected}
	eventType := event.TypeCompleted
	switch state {
	case StateCompleted:
		delta.Completed = 1
		s.logger.Infow("job completed", "job", job.ID, "ticks", job.ticks, "steps", job.steps, "affected", job.affected)
	case StateFailed:
		delta.Failed = 1
		eventType = event.TypeFailed
		s.logger.Errorw("job failed", "job", job.ID, "ticks", job.ticks, "error", err)
	case StateCanceled:
		delta.Canceled = 1
		eventType = event.TypeCanceled
		s.logger.Infow("job canceled", "job", job.ID, "ticks", job.ticks)
	}
	s.tracker.Update(delta)
	s.publish(ctx, newJobEvent(eventType, job, steps, affected, elapsedMs(started)))
	job.result.Resolve(state, err)
}

func (s *Service) publish(ctx context.Context, e *event.Event[JobEvent]) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		if errors.Is(err, messaging.ErrFull) {
			s.logger.Debugw("dropped job event", "job", e.Context.JobID, "type", e.Context.EventType)
			return
		}
		s.logger.Warnw("failed to publish job event", "job", e.Context.JobID, "type", e.Context.EventType, "error", err)
	}
}

func elapsedMs(started time.Time) int {
	return int(clock.Since(started).Milliseconds())
}
