package chat

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/teris-io/shortid"

	"github.com/gochat-dev/chatclient/internal/transport"
	"github.com/gochat-dev/chatclient/internal/types"
)

// MessagesAPI is the REST surface the dispatcher falls back to when the
// realtime channel is down.
type MessagesAPI interface {
	SendMessage(ctx context.Context, groupId string, req types.SendMessageRequest) (*types.Message, error)
	EditMessage(ctx context.Context, groupId, messageId string, req types.EditMessageRequest) (*types.Message, error)
	DeleteMessage(ctx context.Context, groupId, messageId string) error
	MarkRead(ctx context.Context, groupId, messageId string) (*types.ReadStatus, error)
}

// SendOptions carries everything attachable to an outbound message beyond
// its text content.
type SendOptions struct {
	Content          string
	ImageUrl         string
	ReplyToMessageId string
	Mentions         []string
}

// Dispatcher turns user intents into either a transport publish or a REST
// call, off a single Connected() check per action.
type Dispatcher struct {
	transport transport.Session
	api       MessagesAPI
	log       *log.Logger

	// newTemporaryId is injectable for tests
	newTemporaryId func() (string, error)
}

func NewDispatcher(ts transport.Session, api MessagesAPI, logger *log.Logger) *Dispatcher {
	return &Dispatcher{
		transport:      ts,
		api:            api,
		log:            logger,
		newTemporaryId: temporaryId,
	}
}

// temporaryId builds a fresh client-side message id: time-ordered prefix
// plus a random suffix so collisions across clients are negligible.
func temporaryId() (string, error) {
	sid, err := shortid.Generate()
	if err != nil {
		return "", fmt.Errorf("generate shortid: %w", err)
	}

	return fmt.Sprintf("tmp-%d-%s", time.Now().UnixNano(), sid), nil
}

// Send delivers a message. Connected: publish on the send destination and
// return no echo, since the server's broadcast (carrying the temporary id)
// becomes the canonical entry. Disconnected: send over REST and return the
// canonical message for immediate local append. The temporary id rides both
// paths so a server-side dedupe ledger sees retries as one message.
func (d *Dispatcher) Send(ctx context.Context, groupId string, opts SendOptions) (*types.Message, error) {
	tempId, err := d.newTemporaryId()
	if err != nil {
		return nil, err
	}

	if d.transport.Connected() {
		cmd := sendCommand{
			GroupId:          groupId,
			TemporaryId:      tempId,
			Content:          opts.Content,
			ImageUrl:         opts.ImageUrl,
			ReplyToMessageId: opts.ReplyToMessageId,
			Mentions:         opts.Mentions,
		}
		if err := d.transport.Publish(transport.SendDest, cmd); err == nil {
			return nil, nil
		} else if err != transport.ErrNotConnected {
			return nil, err
		}
		// connection dropped between the check and the publish; fall through
	}

	msg, err := d.api.SendMessage(ctx, groupId, types.SendMessageRequest{
		TemporaryId:      tempId,
		Content:          opts.Content,
		ImageUrl:         opts.ImageUrl,
		ReplyToMessageId: opts.ReplyToMessageId,
		Mentions:         opts.Mentions,
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}

// Edit updates a message over REST. The returned message is non-nil only
// when the realtime channel is down: while connected the live edited event
// is the single source of the local mutation, so the response is discarded
// rather than applied twice.
func (d *Dispatcher) Edit(ctx context.Context, groupId, messageId, content string) (*types.Message, error) {
	msg, err := d.api.EditMessage(ctx, groupId, messageId, types.EditMessageRequest{Content: content})
	if err != nil {
		return nil, err
	}

	if d.transport.Connected() {
		return nil, nil
	}

	return msg, nil
}

// Remove deletes a message over REST. applyNow mirrors Edit: true only when
// no live deleted event is expected to perform the local removal.
func (d *Dispatcher) Remove(ctx context.Context, groupId, messageId string) (applyNow bool, err error) {
	if err := d.api.DeleteMessage(ctx, groupId, messageId); err != nil {
		return false, err
	}

	return !d.transport.Connected(), nil
}

// SendTyping is a realtime-only courtesy; while disconnected it does
// nothing at all.
func (d *Dispatcher) SendTyping(groupId string, isTyping bool) error {
	if !d.transport.Connected() {
		return nil
	}

	err := d.transport.Publish(transport.TypingDest, typingCommand{GroupId: groupId, IsTyping: isTyping})
	if err == transport.ErrNotConnected {
		return nil
	}

	return err
}

// SendRead reports the read position over REST on both paths; the server
// broadcasts the resulting read event to the group topic.
func (d *Dispatcher) SendRead(ctx context.Context, groupId, messageId string) (*types.ReadStatus, error) {
	return d.api.MarkRead(ctx, groupId, messageId)
}

func (d *Dispatcher) SendPresence(groupId string, status types.PresenceStatus) error {
	if !d.transport.Connected() {
		return nil
	}

	err := d.transport.Publish(transport.PresenceDest, presenceCommand{GroupId: groupId, Status: status})
	if err == transport.ErrNotConnected {
		return nil
	}

	return err
}
