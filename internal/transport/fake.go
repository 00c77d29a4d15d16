package transport

import "sync"

// FakeSession is an in-memory Session for tests: publishes are recorded,
// subscriptions are held by destination, and Deliver pushes an event through
// a registered handler as if it came off the wire.
type FakeSession struct {
	mu        sync.Mutex
	connected bool
	handlers  map[string]func([]byte)
	published []PublishedFrame
	observers []func(ConnState)
	closed    bool
}

type PublishedFrame struct {
	Dest string
	Body any
}

func NewFakeSession(connected bool) *FakeSession {
	return &FakeSession{
		connected: connected,
		handlers:  make(map[string]func([]byte)),
	}
}

func (f *FakeSession) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *FakeSession) Publish(dest string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return ErrNotConnected
	}

	f.published = append(f.published, PublishedFrame{Dest: dest, Body: v})
	return nil
}

func (f *FakeSession) Subscribe(dest string, handler func([]byte)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.handlers[dest] = handler
	return &fakeSubscription{session: f, dest: dest}, nil
}

func (f *FakeSession) Notify(fn func(ConnState)) {
	f.mu.Lock()
	f.observers = append(f.observers, fn)
	state := Disconnected
	if f.connected {
		state = Connected
	}
	f.mu.Unlock()

	fn(state)
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	return nil
}

// SetConnected flips the connection state and fans the change out to
// observers, mimicking a reconnect or drop.
func (f *FakeSession) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	state := Disconnected
	if connected {
		state = Connected
	}
	observers := make([]func(ConnState), len(f.observers))
	copy(observers, f.observers)
	f.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// Deliver invokes the handler subscribed to dest, if any. It reports whether
// a handler was registered.
func (f *FakeSession) Deliver(dest string, body []byte) bool {
	f.mu.Lock()
	handler, ok := f.handlers[dest]
	f.mu.Unlock()

	if !ok {
		return false
	}

	handler(body)
	return true
}

// Published returns a copy of all frames published so far.
func (f *FakeSession) Published() []PublishedFrame {
	f.mu.Lock()
	defer f.mu.Unlock()

	frames := make([]PublishedFrame, len(f.published))
	copy(frames, f.published)
	return frames
}

// Subscribed reports whether a handler is currently registered for dest.
func (f *FakeSession) Subscribed(dest string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.handlers[dest]
	return ok
}

type fakeSubscription struct {
	session *FakeSession
	dest    string
}

func (s *fakeSubscription) Unsubscribe() error {
	s.session.mu.Lock()
	defer s.session.mu.Unlock()

	delete(s.session.handlers, s.dest)
	return nil
}
