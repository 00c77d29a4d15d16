package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gochat-dev/chatclient/internal/types"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testMessage(id string, offset time.Duration) types.Message {
	return types.Message{
		Id:          id,
		GroupId:     "g1",
		Sender:      types.UserSummary{Id: "u-sender", Name: "sender"},
		Content:     "message " + id,
		MessageType: types.MessageTypeText,
		CreatedAt:   baseTime.Add(offset),
	}
}

func messageIds(c *conversation) []string {
	ids := make([]string, len(c.messages))
	for i, m := range c.messages {
		ids[i] = m.Id
	}
	return ids
}

func Test_applyIncoming_uniqueness(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	// duplicates and edits of the same id never produce two entries
	msgs := []types.Message{
		testMessage("m1", 0),
		testMessage("m2", time.Second),
		testMessage("m1", 0),
		testMessage("m2", time.Second),
		testMessage("m3", 2*time.Second),
	}
	for _, m := range msgs {
		conv.applyIncoming(m)
	}

	seen := make(map[string]int)
	for _, m := range conv.messages {
		seen[m.Id]++
	}
	for id, n := range seen {
		assert.Equalf(t, 1, n, "message %q appears %d times", id, n)
	}
	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIds(conv))
}

func Test_applyIncoming_editReplacesInPlace(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyIncoming(testMessage("m1", 0))
	conv.applyIncoming(testMessage("m2", time.Second))
	conv.applyIncoming(testMessage("m3", 2*time.Second))

	edited := testMessage("m2", time.Second)
	edited.Content = "edited content"
	edited.IsEdited = true
	updatedAt := baseTime.Add(time.Minute)
	edited.UpdatedAt = &updatedAt

	conv.applyIncoming(edited)

	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIds(conv), "edit must preserve position")
	assert.Equal(t, "edited content", conv.messages[1].Content)
	assert.True(t, conv.messages[1].IsEdited)
}

func Test_applyIncoming_temporaryIdReconciliation(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	// local optimistic entry from a REST fallback send
	local := testMessage("srv-0", 0)
	local.TemporaryId = "tmp-123"
	conv.applyIncoming(local)

	before := len(conv.messages)

	// server confirmation with the final id but matching temporary id
	confirmed := testMessage("srv-1", time.Second)
	confirmed.TemporaryId = "tmp-123"
	conv.applyIncoming(confirmed)

	assert.Len(t, conv.messages, before, "confirmation must replace, not append")
	assert.Equal(t, "srv-1", conv.messages[0].Id)
}

func Test_applyIncoming_outOfOrderEventLandsSorted(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyIncoming(testMessage("m1", 0))
	conv.applyIncoming(testMessage("m3", 2*time.Second))
	// late event, e.g. redelivered after a reconnect
	conv.applyIncoming(testMessage("m2", time.Second))

	assert.Equal(t, []string{"m1", "m2", "m3"}, messageIds(conv))
}

func Test_applyIncoming_clearsSenderTyping(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyTyping(types.TypingEvent{GroupId: "g1", UserId: "u-sender", UserName: "sender", IsTyping: true})
	assert.Len(t, conv.typing, 1)

	conv.applyIncoming(testMessage("m1", 0))
	assert.Empty(t, conv.typing, "a send ends the sender's typing state")
}

func Test_applyHistory(t *testing.T) {
	t.Run("initial load replaces and sorts ascending", func(t *testing.T) {
		conv := newConversation("self")
		conv.reset("g1")

		// API pages are newest-first
		page := []types.Message{
			testMessage("m3", 2*time.Second),
			testMessage("m2", time.Second),
			testMessage("m1", 0),
		}
		conv.applyHistory(page, true, true)

		assert.Equal(t, []string{"m1", "m2", "m3"}, messageIds(conv))
		assert.True(t, conv.hasMore)
	})

	t.Run("older page prepends without reordering or dropping", func(t *testing.T) {
		conv := newConversation("self")
		conv.reset("g1")

		conv.applyHistory([]types.Message{
			testMessage("m4", 3*time.Second),
			testMessage("m3", 2*time.Second),
		}, true, true)

		conv.applyHistory([]types.Message{
			testMessage("m2", time.Second),
			testMessage("m1", 0),
		}, false, false)

		assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, messageIds(conv))
		assert.False(t, conv.hasMore)

		for i := 1; i < len(conv.messages); i++ {
			assert.False(t, conv.messages[i].CreatedAt.Before(conv.messages[i-1].CreatedAt),
				"messages must stay ascending by creation time")
		}
	})

	t.Run("older page drops ids already present", func(t *testing.T) {
		conv := newConversation("self")
		conv.reset("g1")

		conv.applyHistory([]types.Message{
			testMessage("m3", 2*time.Second),
			testMessage("m2", time.Second),
		}, true, true)

		// overlapping page: m2 is already loaded
		conv.applyHistory([]types.Message{
			testMessage("m2", time.Second),
			testMessage("m1", 0),
		}, false, false)

		assert.Equal(t, []string{"m1", "m2", "m3"}, messageIds(conv))
	})
}

func Test_applyDeleted_idempotent(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyIncoming(testMessage("m1", 0))
	conv.applyIncoming(testMessage("m2", time.Second))

	conv.applyDeleted("m2")
	after := messageIds(conv)

	conv.applyDeleted("m2")
	assert.Equal(t, after, messageIds(conv), "second delete must be a no-op")

	conv.applyDeleted("never-loaded")
	assert.Equal(t, after, messageIds(conv), "deleting an unknown id must be a no-op")
}

func Test_applyTyping(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	ev := types.TypingEvent{GroupId: "g1", UserId: "u1", UserName: "alice", IsTyping: true}

	conv.applyTyping(ev)
	conv.applyTyping(ev)
	assert.Len(t, conv.typing, 1, "repeated typing events keep one entry per user")

	ev.IsTyping = false
	conv.applyTyping(ev)
	assert.Empty(t, conv.typing)

	// self-originated events are ignored
	conv.applyTyping(types.TypingEvent{GroupId: "g1", UserId: "self", UserName: "me", IsTyping: true})
	assert.Empty(t, conv.typing)
}

func Test_applyPresence_lastWriteWins(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyPresence(types.PresenceEvent{GroupId: "g1", UserId: "u1", Status: types.PresenceOnline})
	conv.applyPresence(types.PresenceEvent{GroupId: "g1", UserId: "u1", Status: types.PresenceAway})

	assert.Len(t, conv.presence, 1)
	assert.Equal(t, types.PresenceAway, conv.presence["u1"].Status)
}

func Test_readCount(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	msg := testMessage("m1", 0)
	conv.applyIncoming(msg)

	assert.Equal(t, 0, conv.readCount("m1"))

	conv.applyRead(types.ReadStatus{UserId: "u1", LastReadMessageId: "m1", LastReadAt: msg.CreatedAt.Add(time.Second)})
	assert.Equal(t, 1, conv.readCount("m1"))

	// the sender never counts toward their own message
	conv.applyRead(types.ReadStatus{UserId: "u-sender", LastReadMessageId: "m1", LastReadAt: msg.CreatedAt.Add(time.Second)})
	assert.Equal(t, 1, conv.readCount("m1"))

	// a read position at or before the message's creation does not count
	conv.applyRead(types.ReadStatus{UserId: "u2", LastReadMessageId: "m0", LastReadAt: msg.CreatedAt})
	assert.Equal(t, 1, conv.readCount("m1"))

	assert.Equal(t, 0, conv.readCount("not-loaded"))
}

func Test_readCount_monotonic(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	msg := testMessage("m1", 0)
	conv.applyIncoming(msg)

	prev := 0
	for i := 0; i < 5; i++ {
		conv.applyRead(types.ReadStatus{
			UserId:     fmt.Sprintf("u%d", i),
			LastReadAt: msg.CreatedAt.Add(time.Duration(i+1) * time.Second),
		})

		count := conv.readCount("m1")
		assert.GreaterOrEqual(t, count, prev, "read count must not decrease")
		prev = count
	}
	assert.Equal(t, 5, prev)
}

func Test_reset_discardsAllState(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	conv.applyIncoming(testMessage("m1", 0))
	conv.applyTyping(types.TypingEvent{UserId: "u1", IsTyping: true})
	conv.applyPresence(types.PresenceEvent{UserId: "u1", Status: types.PresenceOnline})
	conv.applyRead(types.ReadStatus{UserId: "u1", LastReadAt: baseTime})
	conv.hasMore = true

	conv.reset("g2")

	assert.Equal(t, "g2", conv.groupId)
	assert.Empty(t, conv.messages)
	assert.Empty(t, conv.typing)
	assert.Empty(t, conv.presence)
	assert.Empty(t, conv.reads)
	assert.False(t, conv.hasMore)
}

func Test_oldestId(t *testing.T) {
	conv := newConversation("self")
	conv.reset("g1")

	assert.Equal(t, "", conv.oldestId())

	conv.applyIncoming(testMessage("m1", 0))
	conv.applyIncoming(testMessage("m2", time.Second))
	assert.Equal(t, "m1", conv.oldestId())
}
