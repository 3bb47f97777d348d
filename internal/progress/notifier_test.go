package progress

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNotifierDeliversToOwner(t *testing.T) {
	t.Parallel()

	n := NewNotifier(4)
	chA, cancelA := n.Subscribe("alice")
	defer cancelA()
	chB, cancelB := n.Subscribe("bob")
	defer cancelB()

	evt := sampleEvent(StageStart)
	evt.OwnerID = "alice"
	require.NoError(t, n.Consume(context.Background(), []Event{evt}))

	select {
	case got := <-chA:
		require.Equal(t, evt.JobID, got.JobID)
	case <-time.After(time.Second):
		t.Fatal("alice never received the event")
	}

	select {
	case got := <-chB:
		t.Fatalf("bob received an event for alice: %+v", got)
	default:
	}
}

func TestNotifierDropsWhenSubscriberFull(t *testing.T) {
	t.Parallel()

	n := NewNotifier(1)
	ch, cancel := n.Subscribe("alice")
	defer cancel()

	evt := sampleEvent(StageProgress)
	evt.OwnerID = "alice"
	// Second consume must not block even though the buffer is full.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = n.Consume(context.Background(), []Event{evt})
		_ = n.Consume(context.Background(), []Event{evt})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consume blocked on a full subscriber")
	}
	require.Len(t, ch, 1)
}

func TestNotifierCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	n := NewNotifier(4)
	ch, cancel := n.Subscribe("alice")
	cancel()
	cancel() // idempotent

	evt := sampleEvent(StageDone)
	evt.OwnerID = "alice"
	require.NoError(t, n.Consume(context.Background(), []Event{evt}))

	_, open := <-ch
	require.False(t, open)
}

func TestNotifierCloseClosesSubscribers(t *testing.T) {
	t.Parallel()

	n := NewNotifier(4)
	ch, cancel := n.Subscribe("alice")
	require.NoError(t, n.Close(context.Background()))
	cancel() // must not panic after Close

	_, open := <-ch
	require.False(t, open)

	// Post-close subscriptions come back already closed.
	ch2, _ := n.Subscribe("bob")
	_, open = <-ch2
	require.False(t, open)
}
