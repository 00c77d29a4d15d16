// Package transport owns the realtime channel: a STOMP session over a
// WebSocket, with explicit subscription handles so lifecycle is visible to
// callers and fakeable in tests.
package transport

import "errors"

// ErrNotConnected is returned by Publish while the realtime channel is down;
// callers fall back to REST where the action supports it.
var ErrNotConnected = errors.New("transport: not connected")

type ConnState int

const (
	Disconnected ConnState = iota
	Connected
)

func (s ConnState) String() string {
	if s == Connected {
		return "connected"
	}

	return "disconnected"
}

// Session is the live channel's lifecycle contract. Publish and Subscribe
// are fire-and-forget from the caller's perspective: delivery confirmations,
// if any, arrive later as events.
type Session interface {
	// Connected reports whether the channel is currently live.
	Connected() bool
	// Publish sends v as JSON to an outbound command destination.
	Publish(dest string, v any) error
	// Subscribe registers a handler for a destination. The registration
	// survives reconnects until Unsubscribe is called.
	Subscribe(dest string, handler func(body []byte)) (Subscription, error)
	// Notify registers an observer for connection state changes. It is
	// invoked immediately with the current state.
	Notify(fn func(ConnState))
	Close() error
}

type Subscription interface {
	Unsubscribe() error
}

// Destination naming, matching the server's STOMP broker layout.
const (
	NotificationsQueue = "/user/queue/notifications"

	SendDest     = "/app/chat.send"
	TypingDest   = "/app/chat.typing"
	ReadDest     = "/app/chat.read"
	PresenceDest = "/app/chat.presence"
)

func GroupTopic(groupId string) string {
	return "/topic/group/" + groupId
}

func GroupTypingTopic(groupId string) string {
	return GroupTopic(groupId) + "/typing"
}

func GroupReadTopic(groupId string) string {
	return GroupTopic(groupId) + "/read"
}

func GroupPresenceTopic(groupId string) string {
	return GroupTopic(groupId) + "/presence"
}
