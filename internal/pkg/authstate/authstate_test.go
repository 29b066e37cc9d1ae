package authstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestInitialStateIsUnknown(t *testing.T) {
	b := NewBroadcaster()
	assert.Equal(t, StatusUnknown, b.Current().Status)
}

func TestSubscribeBeforeFirstEventReceivesNothingUntilPublish(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event before publish: %+v", ev)
	case <-time.After(20 * time.Millisecond):
	}

	b.SignedIn(42, "alice@example.com")
	ev := recv(t, ch)
	assert.Equal(t, StatusSignedIn, ev.Status)
	assert.Equal(t, uint(42), ev.UserID)
	assert.Equal(t, "alice@example.com", ev.Email)
}

func TestSubscribeAfterEventReplaysCurrentState(t *testing.T) {
	b := NewBroadcaster()
	b.SignedIn(7, "bob@example.com")

	ch, cancel := b.Subscribe()
	defer cancel()

	ev := recv(t, ch)
	assert.Equal(t, StatusSignedIn, ev.Status)
	assert.Equal(t, uint(7), ev.UserID)
}

func TestSignOutReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	b.SignedIn(1, "a@example.com")

	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()
	recv(t, ch1)
	recv(t, ch2)

	b.SignedOut()

	require.Equal(t, StatusSignedOut, recv(t, ch1).Status)
	require.Equal(t, StatusSignedOut, recv(t, ch2).Status)
	assert.Equal(t, StatusSignedOut, b.Current().Status)
}

func TestCancelIsIdempotentAndClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	b.SignedOut()
}

func TestSlowSubscriberDropsEventsInsteadOfBlocking(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Overflow the buffer; Publish must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.SignedIn(uint(i), "x@example.com")
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	// Whatever is buffered is readable; the rest was dropped.
	assert.NotEmpty(t, ch)
}
