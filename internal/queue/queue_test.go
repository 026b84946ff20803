package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTryPushFullAndStopped(t *testing.T) {
	q := New[int](2)
	require.NoError(t, q.TryPush(1))
	require.NoError(t, q.TryPush(2))
	assert.ErrorIs(t, q.TryPush(3), ErrFull)
	assert.Equal(t, 2, q.Size())

	q.Stop()
	assert.ErrorIs(t, q.TryPush(4), ErrStopped)
}

func TestPopBlockingDrainsThenStops(t *testing.T) {
	q := New[int](4)
	require.NoError(t, q.TryPush(1))
	require.NoError(t, q.TryPush(2))
	q.Stop()

	ctx := context.Background()
	v, err := q.PopBlocking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.PopBlocking(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = q.PopBlocking(ctx)
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPopBlockingRespectsContext(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.PopBlocking(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPushBlocksUntilRoomThenSucceeds(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.TryPush(1))

	pushed := make(chan error, 1)
	go func() {
		pushed <- q.Push(context.Background(), 2)
	}()

	select {
	case <-pushed:
		t.Fatal("Push returned before the queue had room")
	case <-time.After(20 * time.Millisecond):
	}

	v, err := q.PopBlocking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, <-pushed)
	v, err = q.PopBlocking(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestPushRespectsContext(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.TryPush(1))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Push(ctx, 2), context.DeadlineExceeded)
}

func TestDrainIntoNonBlocking(t *testing.T) {
	q := New[string](8)
	require.NoError(t, q.TryPush("a"))
	require.NoError(t, q.TryPush("b"))

	out := q.DrainInto(nil)
	assert.Equal(t, []string{"a", "b"}, out)
	assert.Equal(t, 0, q.Size())

	out = q.DrainInto(out)
	assert.Equal(t, []string{"a", "b"}, out)
}
