package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int
}

func TestService_PublishAndListen(t *testing.T) {
	srv := New()
	defer srv.Close()

	var mu sync.Mutex
	var received []int
	SetListenerOf[payload](srv, func(e *Event[payload]) {
		mu.Lock()
		received = append(received, e.Data.Value)
		mu.Unlock()
	})

	publisher := PublisherOf[payload](srv)
	assert.Same(t, publisher, PublisherOf[payload](srv))
	for i := 1; i <= 3; i++ {
		require.NoError(t, publisher.Publish(context.Background(), NewEvent(&Context{JobID: "j", EventType: TypeTick, Tick: i}, payload{Value: i})))
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 3
	}, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, received)
	mu.Unlock()
}

func TestPublisher_Consume(t *testing.T) {
	srv := New()
	defer srv.Close()
	publisher := PublisherOf[payload](srv)
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, NewEvent(&Context{JobID: "a", EventType: TypeCompleted}, payload{Value: 7})))
	event, err := publisher.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, event.Data.Value)
	assert.True(t, event.Context.EventType.IsTerminal())
	assert.False(t, TypeTick.IsTerminal())

	var nilPublisher *Publisher[payload]
	assert.NoError(t, nilPublisher.Publish(ctx, NewEvent(&Context{}, payload{})))
}
