package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/opflow/service/messaging"
)

type TestPayload struct {
	ID    string
	Count int
}

func TestQueue(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Publish(ctx, &TestPayload{ID: fmt.Sprintf("m%d", i), Count: i}))
	}
	assert.Equal(t, 3, queue.Size())

	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, message.T().Count, "messages are delivered in FIFO order")
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack(), "double ack")
	}
	assert.Equal(t, 0, queue.Size())
}

func TestQueueRetries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[TestPayload](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &TestPayload{ID: "retry"}))
	boom := errors.New("boom")
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, "retry", message.T().ID)
		require.NoError(t, message.Nack(boom))
	}

	assert.Eventually(t, func() bool { return queue.DLQSize() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, "retry", queue.DeadLetters()[0].ID)
}

func TestQueueConcurrency(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producers, perProducer := 8, 25
	var consumed sync.Map
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(2)
		go func(p int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &TestPayload{ID: fmt.Sprintf("p%d-m%d", p, j)}))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				consumed.Store(message.T().ID, true)
				assert.NoError(t, message.Ack())
			}
		}()
	}
	wg.Wait()

	count := 0
	consumed.Range(func(_, _ any) bool { count++; return true })
	assert.Equal(t, producers*perProducer, count)
	assert.Equal(t, 0, queue.Size())
}

func TestQueueContextCancellation(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(ctx, &TestPayload{ID: "x"}))

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, queue.Publish(context.Background(), &TestPayload{ID: "y"}))
	message, err := queue.Consume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "y", message.T().ID)
}

func TestQueueClose(t *testing.T) {
	queue := NewQueue[TestPayload](DefaultConfig())
	done := make(chan error, 1)
	go func() {
		_, err := queue.Consume(context.Background())
		done <- err
	}()
	queue.Close()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, messaging.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("consumer was not released by Close")
	}
	assert.ErrorIs(t, queue.Publish(context.Background(), &TestPayload{}), messaging.ErrClosed)
}

func TestQueueMaxSize(t *testing.T) {
	config := DefaultConfig()
	config.MaxSize = 1
	queue := NewQueue[TestPayload](config)
	require.NoError(t, queue.Publish(context.Background(), &TestPayload{}))
	assert.ErrorIs(t, queue.Publish(context.Background(), &TestPayload{}), messaging.ErrFull)
}
