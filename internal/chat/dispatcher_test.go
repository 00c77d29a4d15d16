package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gochat-dev/chatclient/internal/testutil"
	"github.com/gochat-dev/chatclient/internal/transport"
	"github.com/gochat-dev/chatclient/internal/types"
)

type mockMessagesAPI struct {
	mock.Mock
}

func (m *mockMessagesAPI) SendMessage(ctx context.Context, groupId string, req types.SendMessageRequest) (*types.Message, error) {
	args := m.Called(ctx, groupId, req)
	if msg := args.Get(0); msg != nil {
		return msg.(*types.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessagesAPI) EditMessage(ctx context.Context, groupId, messageId string, req types.EditMessageRequest) (*types.Message, error) {
	args := m.Called(ctx, groupId, messageId, req)
	if msg := args.Get(0); msg != nil {
		return msg.(*types.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMessagesAPI) DeleteMessage(ctx context.Context, groupId, messageId string) error {
	args := m.Called(ctx, groupId, messageId)
	return args.Error(0)
}

func (m *mockMessagesAPI) MarkRead(ctx context.Context, groupId, messageId string) (*types.ReadStatus, error) {
	args := m.Called(ctx, groupId, messageId)
	if status := args.Get(0); status != nil {
		return status.(*types.ReadStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

func testDispatcher(t *testing.T, ts transport.Session, api MessagesAPI) *Dispatcher {
	d := NewDispatcher(ts, api, testutil.TestLogger(t))
	n := 0
	d.newTemporaryId = func() (string, error) {
		n++
		return "tmp-" + string(rune('0'+n)), nil
	}
	return d
}

func TestDispatcher_Send(t *testing.T) {
	t.Run("connected publishes and returns no echo", func(t *testing.T) {
		ts := transport.NewFakeSession(true)
		api := &mockMessagesAPI{}
		d := testDispatcher(t, ts, api)

		msg, err := d.Send(context.Background(), "g1", SendOptions{Content: "hello"})
		assert.NoError(t, err)
		assert.Nil(t, msg, "no local echo while connected")

		frames := ts.Published()
		assert.Len(t, frames, 1)
		assert.Equal(t, transport.SendDest, frames[0].Dest)

		cmd, ok := frames[0].Body.(sendCommand)
		assert.True(t, ok)
		assert.Equal(t, "g1", cmd.GroupId)
		assert.Equal(t, "hello", cmd.Content)
		assert.NotEmpty(t, cmd.TemporaryId)

		api.AssertNotCalled(t, "SendMessage")
	})

	t.Run("disconnected falls back to rest and returns the message", func(t *testing.T) {
		ts := transport.NewFakeSession(false)
		api := &mockMessagesAPI{}
		d := testDispatcher(t, ts, api)

		sent := &types.Message{Id: "srv-1", GroupId: "g1", Content: "hello"}
		api.On("SendMessage", mock.Anything, "g1", mock.MatchedBy(func(req types.SendMessageRequest) bool {
			return req.Content == "hello" && req.TemporaryId != ""
		})).Return(sent, nil)

		msg, err := d.Send(context.Background(), "g1", SendOptions{Content: "hello"})
		assert.NoError(t, err)
		assert.Equal(t, sent, msg)
		assert.Empty(t, ts.Published())
		api.AssertExpectations(t)
	})

	t.Run("consecutive sends use distinct temporary ids", func(t *testing.T) {
		ts := transport.NewFakeSession(true)
		api := &mockMessagesAPI{}
		d := testDispatcher(t, ts, api)

		_, err := d.Send(context.Background(), "g1", SendOptions{Content: "one"})
		assert.NoError(t, err)
		_, err = d.Send(context.Background(), "g1", SendOptions{Content: "two"})
		assert.NoError(t, err)

		frames := ts.Published()
		assert.Len(t, frames, 2)
		first := frames[0].Body.(sendCommand).TemporaryId
		second := frames[1].Body.(sendCommand).TemporaryId
		assert.NotEqual(t, first, second)
	})

	t.Run("generated temporary ids are unique", func(t *testing.T) {
		d := NewDispatcher(transport.NewFakeSession(true), &mockMessagesAPI{}, testutil.TestLogger(t))

		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id, err := d.newTemporaryId()
			assert.NoError(t, err)
			assert.False(t, seen[id], "duplicate temporary id %q", id)
			seen[id] = true
		}
	})
}

func TestDispatcher_Edit(t *testing.T) {
	edited := &types.Message{Id: "m1", GroupId: "g1", Content: "fixed", IsEdited: true}

	t.Run("connected discards the response", func(t *testing.T) {
		ts := transport.NewFakeSession(true)
		api := &mockMessagesAPI{}
		api.On("EditMessage", mock.Anything, "g1", "m1", types.EditMessageRequest{Content: "fixed"}).
			Return(edited, nil)
		d := testDispatcher(t, ts, api)

		msg, err := d.Edit(context.Background(), "g1", "m1", "fixed")
		assert.NoError(t, err)
		assert.Nil(t, msg, "the live edited event applies the change")
		api.AssertExpectations(t)
	})

	t.Run("disconnected returns the message for local apply", func(t *testing.T) {
		ts := transport.NewFakeSession(false)
		api := &mockMessagesAPI{}
		api.On("EditMessage", mock.Anything, "g1", "m1", types.EditMessageRequest{Content: "fixed"}).
			Return(edited, nil)
		d := testDispatcher(t, ts, api)

		msg, err := d.Edit(context.Background(), "g1", "m1", "fixed")
		assert.NoError(t, err)
		assert.Equal(t, edited, msg)
	})

	t.Run("rest error propagates", func(t *testing.T) {
		api := &mockMessagesAPI{}
		api.On("EditMessage", mock.Anything, "g1", "m1", mock.Anything).
			Return(nil, assert.AnError)
		d := testDispatcher(t, transport.NewFakeSession(true), api)

		msg, err := d.Edit(context.Background(), "g1", "m1", "fixed")
		assert.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, msg)
	})
}

func TestDispatcher_Remove(t *testing.T) {
	t.Run("connected defers to the live deleted event", func(t *testing.T) {
		api := &mockMessagesAPI{}
		api.On("DeleteMessage", mock.Anything, "g1", "m1").Return(nil)
		d := testDispatcher(t, transport.NewFakeSession(true), api)

		applyNow, err := d.Remove(context.Background(), "g1", "m1")
		assert.NoError(t, err)
		assert.False(t, applyNow)
	})

	t.Run("disconnected applies locally", func(t *testing.T) {
		api := &mockMessagesAPI{}
		api.On("DeleteMessage", mock.Anything, "g1", "m1").Return(nil)
		d := testDispatcher(t, transport.NewFakeSession(false), api)

		applyNow, err := d.Remove(context.Background(), "g1", "m1")
		assert.NoError(t, err)
		assert.True(t, applyNow)
	})
}

func TestDispatcher_SendTyping(t *testing.T) {
	t.Run("connected publishes on the typing destination", func(t *testing.T) {
		ts := transport.NewFakeSession(true)
		d := testDispatcher(t, ts, &mockMessagesAPI{})

		assert.NoError(t, d.SendTyping("g1", true))

		frames := ts.Published()
		assert.Len(t, frames, 1)
		assert.Equal(t, transport.TypingDest, frames[0].Dest)
		assert.Equal(t, typingCommand{GroupId: "g1", IsTyping: true}, frames[0].Body)
	})

	t.Run("disconnected is a silent no-op", func(t *testing.T) {
		ts := transport.NewFakeSession(false)
		d := testDispatcher(t, ts, &mockMessagesAPI{})

		assert.NoError(t, d.SendTyping("g1", true))
		assert.Empty(t, ts.Published())
	})
}

func TestDispatcher_SendPresence(t *testing.T) {
	ts := transport.NewFakeSession(true)
	d := testDispatcher(t, ts, &mockMessagesAPI{})

	assert.NoError(t, d.SendPresence("g1", types.PresenceAway))

	frames := ts.Published()
	assert.Len(t, frames, 1)
	assert.Equal(t, transport.PresenceDest, frames[0].Dest)
	assert.Equal(t, presenceCommand{GroupId: "g1", Status: types.PresenceAway}, frames[0].Body)
}

func TestDispatcher_SendRead(t *testing.T) {
	status := &types.ReadStatus{UserId: "self", LastReadMessageId: "m9"}
	api := &mockMessagesAPI{}
	api.On("MarkRead", mock.Anything, "g1", "m9").Return(status, nil)
	d := testDispatcher(t, transport.NewFakeSession(true), api)

	got, err := d.SendRead(context.Background(), "g1", "m9")
	assert.NoError(t, err)
	assert.Equal(t, status, got)
	api.AssertExpectations(t)
}
