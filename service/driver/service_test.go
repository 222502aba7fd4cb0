package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/opflow/future"
	"github.com/viant/opflow/mutation"
	"github.com/viant/opflow/operation"
	"github.com/viant/opflow/progress"
	"github.com/viant/opflow/service/event"
	"github.com/viant/opflow/service/messaging"
	"github.com/viant/opflow/service/messaging/memory"
)

type fixture struct {
	service   *Service
	tracker   *progress.Tracker
	publisher *event.Publisher[JobEvent]
	events    *event.Service
}

func newFixture(t *testing.T, config Config, start bool, options ...Option) *fixture {
	t.Helper()
	events := event.New()
	ret := &fixture{
		tracker:   progress.NewTracker("test", nil),
		publisher: event.PublisherOf[JobEvent](events),
		events:    events,
	}
	srv, err := New(append([]Option{
		WithConfig(config),
		WithStore(NewJobStore()),
		WithQueue(memory.NewQueue[Ticket](memory.DefaultConfig())),
		WithTracker(ret.tracker),
		WithPublisher(ret.publisher),
	}, options...)...)
	require.NoError(t, err)
	ret.service = srv
	if start {
		require.NoError(t, srv.Start(context.Background()))
	}
	t.Cleanup(func() {
		srv.Shutdown()
		events.Close()
	})
	return ret
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestService_SubmitCompletes(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true)
	ctx := waitCtx(t)

	buffer := mutation.NewBuffer(1000)
	first, err := mutation.NewFill(buffer, mutation.Range{From: 0, To: 600}, 1, mutation.WithBatch(10))
	require.NoError(t, err)
	second, err := mutation.NewFill(buffer, mutation.Range{From: 400, To: 1000}, 1, mutation.WithBatch(10))
	require.NoError(t, err)
	queue, err := operation.NewQueue(first, second)
	require.NoError(t, err)
	sink := future.New[int]()
	root, err := operation.NewAffectedFuture(queue, sink)
	require.NoError(t, err)

	job, err := f.service.Submit(ctx, "fill", root)
	require.NoError(t, err)
	state, err := job.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)

	affected, err := sink.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1000, affected)
	assert.Equal(t, 1000, buffer.Count(1))

	snapshot, err := f.service.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, snapshot.State)
	assert.True(t, snapshot.Progress.IsComplete())
	assert.GreaterOrEqual(t, snapshot.Ticks, 1)
	assert.GreaterOrEqual(t, snapshot.Steps, 2)
	assert.Equal(t, 1000, snapshot.Affected)
	assert.Empty(t, snapshot.Error)

	counters := f.tracker.Snapshot()
	assert.Equal(t, 1, counters.TotalJobs)
	assert.Equal(t, 1, counters.CompletedJobs)
	assert.Equal(t, 0, counters.RunningJobs)
	assert.Equal(t, 0, counters.PendingJobs)
	assert.Equal(t, 1000, counters.Affected)

	completed, err := f.service.Jobs(ctx, StateCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, job.ID, completed[0].ID)
	running, err := f.service.Jobs(ctx, StateRunning, StatePending)
	require.NoError(t, err)
	assert.Empty(t, running)
}

func TestService_Failure(t *testing.T) {
	testCases := []struct {
		name            string
		cancelOnFailure bool
	}{
		{name: "cancel remaining", cancelOnFailure: true},
		{name: "keep remaining", cancelOnFailure: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			config.CancelOnFailure = tc.cancelOnFailure
			f := newFixture(t, config, true)
			ctx := waitCtx(t)

			calls := 0
			failing := operation.FromFunc(func(run *operation.RunContext) (bool, error) {
				calls++
				if calls == 3 {
					return false, errors.New("boom")
				}
				return true, nil
			})
			rest, err := mutation.NewFill(mutation.NewBuffer(10), mutation.Range{From: 0, To: 10}, 1)
			require.NoError(t, err)
			queue, err := operation.NewQueue(failing, rest)
			require.NoError(t, err)

			job, err := f.service.Submit(ctx, "failing", queue)
			require.NoError(t, err)
			state, err := job.Wait(ctx)
			assert.Equal(t, StateFailed, state)
			assert.EqualError(t, err, "boom")
			assert.Equal(t, 3, calls)
			assert.Equal(t, tc.cancelOnFailure, rest.Canceled())
			assert.Equal(t, 0, rest.Total())

			snapshot, err := f.service.Status(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, "boom", snapshot.Error)
			assert.Equal(t, 1, f.tracker.Snapshot().FailedJobs)
		})
	}
}

func TestService_Cancel(t *testing.T) {
	config := DefaultConfig()
	config.StepsPerTick = 1
	f := newFixture(t, config, true)
	ctx := waitCtx(t)

	var mux sync.Mutex
	calls := 0
	endless := operation.FromFunc(func(run *operation.RunContext) (bool, error) {
		mux.Lock()
		calls++
		mux.Unlock()
		return true, nil
	})
	job, err := f.service.Submit(ctx, "endless", endless)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snapshot, err := f.service.Status(ctx, job.ID)
		return err == nil && snapshot.Ticks > 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.service.Cancel(ctx, job.ID))
	state, err := job.Wait(ctx)
	assert.Equal(t, StateCanceled, state)
	assert.True(t, errors.Is(err, operation.ErrCanceled))

	mux.Lock()
	final := calls
	mux.Unlock()
	time.Sleep(20 * time.Millisecond)
	mux.Lock()
	assert.Equal(t, final, calls)
	mux.Unlock()

	assert.NoError(t, f.service.Cancel(ctx, job.ID))
	assert.Equal(t, 1, f.tracker.Snapshot().CanceledJobs)
}

func TestService_Interleaves(t *testing.T) {
	config := DefaultConfig()
	config.Workers = 1
	config.StepsPerTick = 1
	f := newFixture(t, config, false)
	ctx := waitCtx(t)

	var mux sync.Mutex
	var journal []string
	counter := func(name string, steps int) operation.Operation {
		calls := 0
		return operation.FromFunc(func(run *operation.RunContext) (bool, error) {
			calls++
			mux.Lock()
			journal = append(journal, name)
			mux.Unlock()
			return calls < steps, nil
		})
	}

	a, err := f.service.Submit(ctx, "a", counter("a", 3))
	require.NoError(t, err)
	b, err := f.service.Submit(ctx, "b", counter("b", 3))
	require.NoError(t, err)
	require.NoError(t, f.service.Start(ctx))

	for _, job := range []*Job{a, b} {
		state, err := job.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, StateCompleted, state)
	}
	mux.Lock()
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, journal)
	mux.Unlock()

	snapshot, err := f.service.Status(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, snapshot.Ticks)
	assert.Equal(t, 3, snapshot.Steps)
}

func TestService_FollowsReplace(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true)
	ctx := waitCtx(t)

	buffer := mutation.NewBuffer(32)
	fill, err := mutation.NewFill(buffer, mutation.Range{From: 0, To: 32}, 7)
	require.NoError(t, err)
	root := operation.FromChain(func(run *operation.RunContext) (operation.Operation, error) {
		return fill, nil
	})

	job, err := f.service.Submit(ctx, "chain", root)
	require.NoError(t, err)
	state, err := job.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, state)
	assert.Equal(t, 32, buffer.Count(7))
}

func TestService_Run(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.RetryDelay = time.Millisecond
	f := newFixture(t, config, true)
	ctx := waitCtx(t)

	attempts := 0
	build := func() (operation.Operation, error) {
		attempts++
		attempt := attempts
		return operation.FromFunc(func(run *operation.RunContext) (bool, error) {
			if attempt == 1 {
				return false, errors.New("transient")
			}
			return false, nil
		}), nil
	}

	job, err := f.service.Run(ctx, "retried", build)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, 1, f.tracker.Snapshot().FailedJobs)
	assert.Equal(t, 1, f.tracker.Snapshot().CompletedJobs)

	_, err = f.service.Run(ctx, "broken", func() (operation.Operation, error) {
		return nil, errors.New("cannot build")
	})
	assert.EqualError(t, err, "cannot build")
}

func TestService_Events(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true)
	ctx := waitCtx(t)

	job, err := f.service.Submit(ctx, "events", operation.FromFunc(func(run *operation.RunContext) (bool, error) {
		return false, nil
	}))
	require.NoError(t, err)
	_, err = job.Wait(ctx)
	require.NoError(t, err)

	var types []event.Type
	for {
		e, err := f.publisher.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, job.ID, e.Context.JobID)
		types = append(types, e.Context.EventType)
		if e.Context.EventType.IsTerminal() {
			assert.Equal(t, StateCompleted, e.Data.State)
			break
		}
	}
	assert.Equal(t, []event.Type{event.TypeSubmitted, event.TypeCompleted}, types)
}

func TestService_ArchiveAndPurge(t *testing.T) {
	ctx := waitCtx(t)
	archive, err := NewArchive(ctx, "mem://localhost/opflow/driver/"+t.Name())
	require.NoError(t, err)
	f := newFixture(t, DefaultConfig(), true, WithArchive(archive))

	ok, err := f.service.Submit(ctx, "ok", operation.FromFunc(func(run *operation.RunContext) (bool, error) {
		return false, nil
	}))
	require.NoError(t, err)
	bad, err := f.service.Submit(ctx, "bad", operation.FromFunc(func(run *operation.RunContext) (bool, error) {
		return false, errors.New("bad input")
	}))
	require.NoError(t, err)
	_, _ = ok.Wait(ctx)
	_, _ = bad.Wait(ctx)

	purged, err := f.service.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)
	jobs, err := f.service.Jobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	snapshot, err := f.service.Status(ctx, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, snapshot.State)
	assert.Equal(t, "bad input", snapshot.Error)

	history, err := f.service.History(ctx, StateCompleted)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ok.ID, history[0].ID)
	assert.True(t, history[0].Progress.IsComplete())

	_, err = f.service.Status(ctx, "missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
}

func TestService_Errors(t *testing.T) {
	f := newFixture(t, DefaultConfig(), true)
	ctx := waitCtx(t)

	_, err := f.service.Status(ctx, "missing")
	assert.True(t, errors.Is(err, ErrJobNotFound))
	assert.True(t, errors.Is(f.service.Cancel(ctx, "missing"), ErrJobNotFound))

	_, err = f.service.Submit(ctx, "nil", nil)
	assert.True(t, errors.Is(err, operation.ErrInvalidArgument))

	f.service.Shutdown()
	_, err = f.service.Submit(ctx, "late", operation.FromFunc(func(run *operation.RunContext) (bool, error) {
		return false, nil
	}))
	assert.True(t, errors.Is(err, ErrStopped))
	assert.True(t, errors.Is(f.service.Start(ctx), ErrStopped))

	_, err = New(WithQueue(memory.NewQueue[Ticket](memory.DefaultConfig())))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "default", mutate: func(c *Config) {}},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "negative budget", mutate: func(c *Config) { c.TickBudget = -1 }, wantErr: true},
		{name: "unbounded tick", mutate: func(c *Config) { c.TickBudget = 0; c.StepsPerTick = 0 }, wantErr: true},
		{name: "steps only", mutate: func(c *Config) { c.TickBudget = 0 }},
		{name: "no attempts", mutate: func(c *Config) { c.MaxAttempts = 0 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(&config)
			err := config.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_CumulativeRoot(t *testing.T) {
	testCases := []struct {
		name  string
		build func(op operation.Operation) operation.Operation
	}{
		{name: "copy", build: func(op operation.Operation) operation.Operation { return op }},
		{
			name: "chained copy",
			build: func(op operation.Operation) operation.Operation {
				return operation.FromChain(func(run *operation.RunContext) (operation.Operation, error) {
					return op, nil
				})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			config.StepsPerTick = 1
			f := newFixture(t, config, true)
			ctx := waitCtx(t)

			source := mutation.NewBuffer(1000)
			for i := 0; i < source.Len(); i++ {
				source.Set(i, 7)
			}
			dest := mutation.NewBuffer(1000)
			cp, err := mutation.NewCopy(source, mutation.Range{From: 0, To: 1000}, dest, 0)
			require.NoError(t, err)

			job, err := f.service.Submit(ctx, "copy", tc.build(cp))
			require.NoError(t, err)
			state, err := job.Wait(ctx)
			require.NoError(t, err)
			assert.Equal(t, StateCompleted, state)
			assert.Equal(t, 1000, dest.Count(7))

			snapshot, err := f.service.Status(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, 1000, snapshot.Affected)
			assert.Equal(t, 1000, f.tracker.Snapshot().Affected)
		})
	}
}

func TestService_SubmitQueueFull(t *testing.T) {
	f := newFixture(t, DefaultConfig(), false,
		WithQueue(memory.NewQueue[Ticket](memory.Config{MaxSize: 1})))
	ctx := waitCtx(t)
	never := func() operation.Operation {
		return operation.FromFunc(func(run *operation.RunContext) (bool, error) { return true, nil })
	}

	first, err := f.service.Submit(ctx, "first", never())
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, "second", never())
	assert.True(t, errors.Is(err, messaging.ErrFull))

	pending, err := f.service.Jobs(ctx, StatePending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
	counters := f.tracker.Snapshot()
	assert.Equal(t, 1, counters.TotalJobs)
	assert.Equal(t, 1, counters.PendingJobs)
}

// limitedQueue rejects publishing once its allowance is used up.
type limitedQueue struct {
	*memory.Queue[Ticket]
	mux   sync.Mutex
	allow int
}

func (q *limitedQueue) Publish(ctx context.Context, t *Ticket) error {
	q.mux.Lock()
	if q.allow == 0 {
		q.mux.Unlock()
		return messaging.ErrFull
	}
	q.allow--
	q.mux.Unlock()
	return q.Queue.Publish(ctx, t)
}

func TestService_RescheduleFailure(t *testing.T) {
	config := DefaultConfig()
	config.StepsPerTick = 1
	queue := &limitedQueue{Queue: memory.NewQueue[Ticket](memory.DefaultConfig()), allow: 1}
	f := newFixture(t, config, true, WithQueue(queue))
	ctx := waitCtx(t)

	op := operation.FromFunc(func(run *operation.RunContext) (bool, error) { return true, nil })
	job, err := f.service.Submit(ctx, "endless", op)
	require.NoError(t, err)

	state, err := job.Wait(ctx)
	assert.Equal(t, StateFailed, state)
	assert.True(t, errors.Is(err, messaging.ErrFull))

	counters := f.tracker.Snapshot()
	assert.Equal(t, 1, counters.FailedJobs)
	assert.Equal(t, 0, counters.RunningJobs)
	assert.Equal(t, 0, counters.PendingJobs)
}
