package session

import "sync"

// Signal identifies a session state change broadcast to the UI.
type Signal int

const (
	// SignalLoggedIn is emitted at most once per session, guarded by the
	// store's one-shot marker.
	SignalLoggedIn Signal = iota
	// SignalLoggedOut is emitted on explicit logout and on any 401 seen
	// by the caches.
	SignalLoggedOut
)

func (s Signal) String() string {
	switch s {
	case SignalLoggedIn:
		return "login"
	case SignalLoggedOut:
		return "logout"
	default:
		return "unknown"
	}
}

// Handler receives a session signal.
type Handler func(Signal)

// Bus broadcasts session signals to independently-mounted listeners.
// Handlers registered before an emission are invoked synchronously in
// registration order. Subscriptions must be cancelled on teardown.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   []busEntry
}

type busEntry struct {
	id      int
	handler Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a handler and returns its subscription.
func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.subs = append(b.subs, busEntry{id: b.nextID, handler: h})
	return &Subscription{bus: b, id: b.nextID}
}

// Emit delivers the signal to every live handler in registration order.
func (b *Bus) Emit(sig Signal) {
	b.mu.Lock()
	handlers := make([]Handler, len(b.subs))
	for i, e := range b.subs {
		handlers[i] = e.handler
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(sig)
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.subs {
		if e.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Subscription ties a handler's lifetime to its owner; Cancel is
// idempotent.
type Subscription struct {
	bus  *Bus
	id   int
	once sync.Once
}

// Cancel removes the handler from the bus.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
	})
}
