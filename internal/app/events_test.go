package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventsDeliverOnceInOrder(t *testing.T) {
	ctx := context.Background()
	e := NewEvents()

	require.NoError(t, e.Send(ctx, ShowMessage{Message: "first"}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Send(ctx, Saved{ID: 2})
	}()

	assert.Equal(t, ShowMessage{Message: "first"}, <-e.C())
	assert.Equal(t, Saved{ID: 2}, <-e.C())
	<-done

	_, ok := e.TryReceive()
	assert.False(t, ok)
}

func TestEventsSendHonorsContext(t *testing.T) {
	e := NewEvents()
	require.NoError(t, e.Send(context.Background(), Saved{ID: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.Send(ctx, Saved{ID: 2})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	ev, ok := e.TryReceive()
	require.True(t, ok)
	assert.Equal(t, Saved{ID: 1}, ev)
}
