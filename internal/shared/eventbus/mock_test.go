package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBusOrdering(t *testing.T) {
	bus := NewMemoryEventBus()
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, NewEvent(TopicTasks, EventTaskRegistered, "t1", map[string]string{"name": "alpha"})))
	require.NoError(t, bus.Publish(ctx, NewEvent(TopicRuns, EventRunStarted, "r1", nil)))
	require.NoError(t, bus.Publish(ctx, NewEvent(TopicTasks, EventTaskRegistered, "t2", nil)))

	events, err := bus.Events(ctx, TopicTasks, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "t1", events[0].SubjectID)
	assert.Equal(t, "alpha", events[0].Data["name"])
	assert.Equal(t, "t2", events[1].SubjectID)
	assert.NotEqual(t, events[0].ID, events[1].ID)

	limited, err := bus.Events(ctx, TopicTasks, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	n, err := bus.EventCount(ctx, TopicRuns)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestMemoryEventBusTrimsOldest(t *testing.T) {
	bus := NewMemoryEventBus()
	ctx := context.Background()
	for i := 0; i < MaxStreamLength+5; i++ {
		require.NoError(t, bus.Publish(ctx, NewEvent(TopicRuns, EventRunStarted, "r", nil)))
	}

	n, err := bus.EventCount(ctx, TopicRuns)
	require.NoError(t, err)
	assert.EqualValues(t, MaxStreamLength, n)

	events, err := bus.Events(ctx, TopicRuns, 1)
	require.NoError(t, err)
	assert.Equal(t, "6", events[0].ID)
}

func TestMemoryEventBusCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemoryEventBus().Publish(ctx, NewEvent(TopicTasks, EventTaskRegistered, "t", nil)), context.Canceled)
}

func TestNoOpEventBus(t *testing.T) {
	bus := NewNoOpEventBus()
	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, NewEvent(TopicTasks, EventTaskRegistered, "t", nil)))
	events, err := bus.Events(ctx, TopicTasks, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
