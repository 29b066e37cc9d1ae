package authstate

import "sync"

// Status is the authentication state of the application. Until the first
// event arrives the state is unknown, not signed-out.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusSignedIn  Status = "signed_in"
	StatusSignedOut Status = "signed_out"
)

// Event is one auth-state change. UserID and Email are only set for sign-ins.
type Event struct {
	Status Status
	UserID uint
	Email  string
}

// Broadcaster fans auth-state events out to subscribers. It replaces the
// implicit "listen to the provider" callback with an explicit stream that has
// a defined initial state and explicit unsubscribe.
type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	current Event
	primed  bool
}

// NewBroadcaster creates a broadcaster in the unknown state.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:    make(map[int]chan Event),
		current: Event{Status: StatusUnknown},
	}
}

// Current returns the last published event, or a StatusUnknown event when
// nothing has been published yet.
func (b *Broadcaster) Current() Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers a listener. The returned channel first receives the
// current state if one is known, then every subsequent event. The returned
// function unsubscribes and closes the channel; it is safe to call twice.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	// Buffer one replay slot plus headroom so slow consumers don't stall Publish.
	ch := make(chan Event, 8)
	b.subs[id] = ch
	if b.primed {
		ch <- b.current
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish records the event as current and delivers it to every subscriber.
// Subscribers that cannot keep up lose intermediate events rather than
// blocking the publisher.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = ev
	b.primed = true
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SignedIn publishes a sign-in event.
func (b *Broadcaster) SignedIn(userID uint, email string) {
	b.Publish(Event{Status: StatusSignedIn, UserID: userID, Email: email})
}

// SignedOut publishes a sign-out event.
func (b *Broadcaster) SignedOut() {
	b.Publish(Event{Status: StatusSignedOut})
}
