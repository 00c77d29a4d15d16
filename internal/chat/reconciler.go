package chat

import (
	"slices"
	"sort"

	"github.com/gochat-dev/chatclient/internal/types"
)

// conversation is the reconciled view of the active group: one message list
// merged from REST history, optimistic echoes and live events, plus the
// ephemeral typing/presence/read state. It is a plain state machine with no
// locking; the Client's run loop is its only writer.
type conversation struct {
	groupId string
	selfId  string

	// messages is ascending by creation time and unique by id.
	messages []types.Message
	hasMore  bool

	typing   map[string]types.TypingEvent
	presence map[string]types.PresenceEvent
	reads    map[string]types.ReadStatus
}

func newConversation(selfId string) *conversation {
	c := &conversation{selfId: selfId}
	c.reset("")
	return c
}

// reset discards all state and rebinds the conversation to groupId.
// Switching groups never carries state across.
func (c *conversation) reset(groupId string) {
	c.groupId = groupId
	c.messages = nil
	c.hasMore = false
	c.typing = make(map[string]types.TypingEvent)
	c.presence = make(map[string]types.PresenceEvent)
	c.reads = make(map[string]types.ReadStatus)
}

// applyHistory merges a REST page. The API returns newest-first; the page is
// reversed into ascending order, then either replaces the list (initial
// load) or is prepended with already-loaded ids filtered out (scroll-back).
func (c *conversation) applyHistory(page []types.Message, hasMore bool, initial bool) {
	asc := make([]types.Message, len(page))
	copy(asc, page)
	slices.Reverse(asc)
	sort.SliceStable(asc, func(i, j int) bool {
		return asc[i].CreatedAt.Before(asc[j].CreatedAt)
	})

	if initial {
		c.messages = asc
		c.hasMore = hasMore
		return
	}

	older := asc[:0]
	for _, msg := range asc {
		if c.indexOf(msg.Id) < 0 {
			older = append(older, msg)
		}
	}

	c.messages = append(older, c.messages...)
	c.hasMore = hasMore
}

// applyIncoming merges one message event. A matching id is an edit and
// replaces in place; a matching temporary id is the confirmation of a local
// send and also replaces in place; anything else is inserted in creation
// order. Live events normally arrive in order, so the insert is an append in
// the common case, but a late event after a reconnect still lands sorted.
func (c *conversation) applyIncoming(msg types.Message) {
	// the sender stopped typing by sending
	delete(c.typing, msg.Sender.Id)

	if i := c.indexOf(msg.Id); i >= 0 {
		c.messages[i] = msg
		return
	}

	if msg.TemporaryId != "" {
		if i := c.indexOfTemporary(msg.TemporaryId); i >= 0 {
			c.messages[i] = msg
			return
		}
	}

	n := len(c.messages)
	if n == 0 || !msg.CreatedAt.Before(c.messages[n-1].CreatedAt) {
		c.messages = append(c.messages, msg)
		return
	}

	i := sort.Search(n, func(i int) bool {
		return c.messages[i].CreatedAt.After(msg.CreatedAt)
	})
	c.messages = slices.Insert(c.messages, i, msg)
}

// applyDeleted removes the message if present. Deleting an id that was never
// loaded, or was already removed, is a no-op.
func (c *conversation) applyDeleted(messageId string) {
	if i := c.indexOf(messageId); i >= 0 {
		c.messages = slices.Delete(c.messages, i, i+1)
	}
}

// applyTyping keeps at most one entry per user. Self-originated events are
// ignored so the user never sees themselves typing.
func (c *conversation) applyTyping(ev types.TypingEvent) {
	if ev.UserId == c.selfId {
		return
	}

	if ev.IsTyping {
		c.typing[ev.UserId] = ev
	} else {
		delete(c.typing, ev.UserId)
	}
}

// applyPresence upserts by user id; the last event to arrive wins.
func (c *conversation) applyPresence(ev types.PresenceEvent) {
	c.presence[ev.UserId] = ev
}

func (c *conversation) applyRead(status types.ReadStatus) {
	c.reads[status.UserId] = status
}

// readCount derives "read by N others" for a message: the number of distinct
// users, excluding the sender, whose last-read timestamp is strictly after
// the message's creation time. Timestamp comparison is used rather than list
// position so the count works even when the referenced last-read message is
// outside the loaded window.
func (c *conversation) readCount(messageId string) int {
	i := c.indexOf(messageId)
	if i < 0 {
		return 0
	}
	msg := c.messages[i]

	count := 0
	for userId, status := range c.reads {
		if userId == msg.Sender.Id {
			continue
		}
		if status.LastReadAt.After(msg.CreatedAt) {
			count++
		}
	}

	return count
}

func (c *conversation) indexOf(messageId string) int {
	return slices.IndexFunc(c.messages, func(m types.Message) bool {
		return m.Id == messageId
	})
}

func (c *conversation) indexOfTemporary(temporaryId string) int {
	return slices.IndexFunc(c.messages, func(m types.Message) bool {
		return m.TemporaryId == temporaryId
	})
}

// oldestId is the pagination cursor for loading the next older page.
func (c *conversation) oldestId() string {
	if len(c.messages) == 0 {
		return ""
	}

	return c.messages[0].Id
}
