package transport

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"
)

const (
	dialTimeout      = 10 * time.Second
	defaultHeartbeat = 10 * time.Second
)

// TokenSource supplies the bearer token for the WebSocket handshake.
type TokenSource interface {
	AccessToken() string
}

type subEntry struct {
	dest    string
	handler func([]byte)
	active  *stomp.Subscription
}

// STOMPSession is the production Session: STOMP over a WebSocket with
// automatic reconnect and resubscription. Reconnect delays follow an
// exponential backoff that resets after each successful connect.
type STOMPSession struct {
	wsURL     string
	tokens    TokenSource
	heartbeat time.Duration
	log       *log.Logger

	mu        sync.Mutex
	conn      *stomp.Conn
	ws        *websocket.Conn
	connected bool
	subs      map[int]*subEntry
	nextSubId int
	observers []func(ConnState)

	stop chan struct{}
	done chan struct{}
}

func NewSTOMPSession(wsURL string, tokens TokenSource, heartbeat time.Duration, logger *log.Logger) *STOMPSession {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	s := &STOMPSession{
		wsURL:     wsURL,
		tokens:    tokens,
		heartbeat: heartbeat,
		log:       logger,
		subs:      make(map[int]*subEntry),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go s.run()
	return s
}

func (s *STOMPSession) run() {
	defer close(s.done)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever

	for {
		lost, err := s.connect()
		if err != nil {
			s.log.Println("stomp connect:", err)

			select {
			case <-time.After(bo.NextBackOff()):
				continue
			case <-s.stop:
				return
			}
		}

		bo.Reset()
		s.notifyObservers(Connected)

		select {
		case <-lost:
			s.teardown()
			s.notifyObservers(Disconnected)
		case <-s.stop:
			s.teardown()
			s.notifyObservers(Disconnected)
			return
		}
	}
}

// connect dials the WebSocket, performs the STOMP handshake and re-activates
// every registered subscription. The returned channel closes when the
// connection dies.
func (s *STOMPSession) connect() (chan struct{}, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}

	header := http.Header{}
	if token := s.tokens.AccessToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := dialer.Dial(s.wsURL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", s.wsURL, err)
	}

	conn, err := stomp.Connect(&wsConn{conn: ws},
		stomp.ConnOpt.HeartBeat(s.heartbeat, s.heartbeat),
		stomp.ConnOpt.Host("/"),
	)
	if err != nil {
		ws.Close()
		return nil, fmt.Errorf("stomp handshake: %w", err)
	}

	lost := make(chan struct{})
	var once sync.Once
	markLost := func() { once.Do(func() { close(lost) }) }

	s.mu.Lock()
	s.conn = conn
	s.ws = ws
	s.connected = true

	for _, entry := range s.subs {
		if err := s.activateLocked(entry, markLost); err != nil {
			s.mu.Unlock()
			s.teardown()
			return nil, fmt.Errorf("resubscribe %s: %w", entry.dest, err)
		}
	}
	s.mu.Unlock()

	s.log.Println("stomp session established")
	return lost, nil
}

func (s *STOMPSession) activateLocked(entry *subEntry, markLost func()) error {
	sub, err := s.conn.Subscribe(entry.dest, stomp.AckAuto)
	if err != nil {
		return err
	}
	entry.active = sub

	go func(handler func([]byte)) {
		for msg := range sub.C {
			if msg.Err != nil {
				markLost()
				return
			}
			handler(msg.Body)
		}
		markLost()
	}(entry.handler)

	return nil
}

func (s *STOMPSession) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return
	}

	s.connected = false
	for _, entry := range s.subs {
		entry.active = nil
	}

	s.conn = nil
	if s.ws != nil {
		s.ws.Close()
		s.ws = nil
	}
}

func (s *STOMPSession) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.connected
}

func (s *STOMPSession) Publish(dest string, v any) error {
	s.mu.Lock()
	conn, connected := s.conn, s.connected
	s.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode publish body: %w", err)
	}

	if err := conn.Send(dest, "application/json", body); err != nil {
		return fmt.Errorf("send to %s: %w", dest, err)
	}

	return nil
}

func (s *STOMPSession) Subscribe(dest string, handler func([]byte)) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubId
	s.nextSubId++

	entry := &subEntry{dest: dest, handler: handler}
	s.subs[id] = entry

	if s.connected {
		// lost connections are detected by the pump goroutines started at
		// connect time, so a mid-session activation failure just drops the
		// live leg; the registration is retried on the next reconnect
		if err := s.activateLocked(entry, func() {}); err != nil {
			s.log.Printf("subscribe %s: %v", dest, err)
		}
	}

	return &stompSubscription{session: s, id: id}, nil
}

func (s *STOMPSession) unsubscribe(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.subs[id]
	if !ok {
		return nil
	}
	delete(s.subs, id)

	if entry.active != nil {
		return entry.active.Unsubscribe()
	}

	return nil
}

func (s *STOMPSession) Notify(fn func(ConnState)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	state := Disconnected
	if s.connected {
		state = Connected
	}
	s.mu.Unlock()

	fn(state)
}

func (s *STOMPSession) notifyObservers(state ConnState) {
	s.mu.Lock()
	observers := make([]func(ConnState), len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

func (s *STOMPSession) Close() error {
	close(s.stop)
	<-s.done

	return nil
}

type stompSubscription struct {
	session *STOMPSession
	id      int
}

func (s *stompSubscription) Unsubscribe() error {
	return s.session.unsubscribe(s.id)
}
