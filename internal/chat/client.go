package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gochat-dev/chatclient/internal/transport"
	"github.com/gochat-dev/chatclient/internal/types"
)

// ErrNoActiveGroup is returned by message actions before any group has been
// selected.
var ErrNoActiveGroup = errors.New("chat: no active group")

const eventQueueSize = 256

type HistoryAPI interface {
	ListMessages(ctx context.Context, groupId, before string, limit int) (*types.MessageListResponse, error)
	ReadStatuses(ctx context.Context, groupId string) ([]types.ReadStatus, error)
}

// loopEvent is the one-of input to the run loop. Exactly one field is set.
type loopEvent struct {
	// epoch tags group-scoped events with the selection generation they
	// belong to; stale ones are discarded.
	epoch int

	selectGroup  *string
	loadOlder    bool
	message      *types.Message
	deletedId    string
	typing       *types.TypingEvent
	presence     *types.PresenceEvent
	read         *types.ReadStatus
	history      *historyResult
	conn         *transport.ConnState
	notification *types.Notification
}

type historyResult struct {
	initial bool
	// gapFill merges the newest page after a reconnect instead of touching
	// the loaded window
	gapFill bool
	msgs    []types.Message
	hasMore bool
	reads   []types.ReadStatus
	err     error
}

// Client merges REST-fetched history, optimistic local sends and live
// events into one consistent per-group view. All state mutation happens on
// a single run-loop goroutine; REST results re-enter the loop as events.
type Client struct {
	log        *log.Logger
	api        HistoryAPI
	dispatcher *Dispatcher
	directory  *Directory
	ts         transport.Session
	self       types.UserSummary
	pageSize   int

	mu            sync.RWMutex
	conv          *conversation
	connected     bool
	notifications []types.Notification
	histErr       error
	epoch         int

	subs     []transport.Subscription
	notifSub transport.Subscription

	events  chan loopEvent
	updates chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

func NewClient(logger *log.Logger, api HistoryAPI, dispatcher *Dispatcher, directory *Directory, ts transport.Session, self types.UserSummary, pageSize int) *Client {
	c := &Client{
		log:        logger,
		api:        api,
		dispatcher: dispatcher,
		directory:  directory,
		ts:         ts,
		self:       self,
		pageSize:   pageSize,
		conv:       newConversation(self.Id),
		events:     make(chan loopEvent, eventQueueSize),
		updates:    make(chan struct{}, 1),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	sub, err := ts.Subscribe(transport.NotificationsQueue, c.handleNotificationFrame)
	if err != nil {
		logger.Println("subscribe notifications:", err)
	} else {
		c.notifSub = sub
	}

	ts.Notify(func(state transport.ConnState) {
		c.post(loopEvent{conn: &state})
	})

	go c.run()
	return c
}

func (c *Client) run() {
	defer close(c.done)

	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case <-c.stop:
			return
		}
	}
}

func (c *Client) handle(ev loopEvent) {
	switch {
	case ev.conn != nil:
		c.handleConnChange(*ev.conn)
	case ev.notification != nil:
		c.handleNotification(*ev.notification)
	case ev.selectGroup != nil:
		c.handleSelectGroup(*ev.selectGroup)
	case ev.loadOlder:
		c.handleLoadOlder()
	default:
		c.handleGroupScoped(ev)
	}
}

func (c *Client) handleGroupScoped(ev loopEvent) {
	c.mu.Lock()
	if ev.epoch != c.epoch {
		// event for a previously selected group, or a REST call that
		// resolved after a switch
		c.mu.Unlock()
		return
	}

	switch {
	case ev.history != nil:
		c.applyHistoryLocked(ev.history)
	case ev.message != nil:
		c.conv.applyIncoming(*ev.message)
	case ev.deletedId != "":
		c.conv.applyDeleted(ev.deletedId)
	case ev.typing != nil:
		c.conv.applyTyping(*ev.typing)
	case ev.presence != nil:
		c.conv.applyPresence(*ev.presence)
	case ev.read != nil:
		c.conv.applyRead(*ev.read)
	}
	c.mu.Unlock()

	c.signalUpdate()
}

func (c *Client) applyHistoryLocked(res *historyResult) {
	if res.err != nil {
		// retryable: existing messages stay untouched
		c.histErr = res.err
		return
	}
	c.histErr = nil

	if res.gapFill {
		// merge through the ordered-insert path so anything already known
		// dedupes and anything missed during the disconnect lands sorted
		for i := len(res.msgs) - 1; i >= 0; i-- {
			c.conv.applyIncoming(res.msgs[i])
		}
	} else {
		c.conv.applyHistory(res.msgs, res.hasMore, res.initial)
	}

	for _, status := range res.reads {
		c.conv.applyRead(status)
	}
}

func (c *Client) handleSelectGroup(groupId string) {
	c.mu.Lock()
	c.epoch++
	epoch := c.epoch
	c.conv.reset(groupId)
	c.histErr = nil
	c.mu.Unlock()

	// tear down the old group's subscriptions before creating the new
	// ones so a late event for the old group cannot bleed in
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil {
			c.log.Println("unsubscribe:", err)
		}
	}
	c.subs = c.subs[:0]

	if groupId == "" {
		c.signalUpdate()
		return
	}

	c.subscribeGroup(groupId, epoch)
	go c.fetchHistory(epoch, groupId, "", true, false)
	c.signalUpdate()
}

func (c *Client) handleLoadOlder() {
	c.mu.RLock()
	groupId := c.conv.groupId
	epoch := c.epoch
	before := c.conv.oldestId()
	hasMore := c.conv.hasMore || len(c.conv.messages) == 0
	c.mu.RUnlock()

	if groupId == "" || !hasMore {
		return
	}

	go c.fetchHistory(epoch, groupId, before, before == "", false)
}

func (c *Client) handleConnChange(state transport.ConnState) {
	c.mu.Lock()
	c.connected = state == transport.Connected
	groupId := c.conv.groupId
	epoch := c.epoch
	c.mu.Unlock()

	if state == transport.Connected {
		// close the missed-event window: re-pull the newest page for the
		// active group and refresh the directory
		if groupId != "" {
			go c.fetchHistory(epoch, groupId, "", false, true)
		}
		go c.refreshDirectory()
	}

	c.signalUpdate()
}

func (c *Client) handleNotification(n types.Notification) {
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()

	// membership and group-metadata changes piggyback on this queue
	go c.refreshDirectory()

	c.signalUpdate()
}

func (c *Client) refreshDirectory() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.directory.Refresh(ctx); err != nil {
		c.log.Println("refresh groups:", err)
		return
	}

	c.signalUpdate()
}

func (c *Client) fetchHistory(epoch int, groupId, before string, initial, gapFill bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res := &historyResult{initial: initial, gapFill: gapFill}

	resp, err := c.api.ListMessages(ctx, groupId, before, c.pageSize)
	if err != nil {
		res.err = err
		c.post(loopEvent{epoch: epoch, history: res})
		return
	}

	res.msgs = resp.Messages
	res.hasMore = resp.HasMore

	if initial {
		reads, err := c.api.ReadStatuses(ctx, groupId)
		if err != nil {
			c.log.Println("read statuses:", err)
		} else {
			res.reads = reads
		}
	}

	c.post(loopEvent{epoch: epoch, history: res})
}

func (c *Client) subscribeGroup(groupId string, epoch int) {
	topics := map[string]func([]byte){
		transport.GroupTopic(groupId):         func(body []byte) { c.handleGroupFrame(epoch, body) },
		transport.GroupTypingTopic(groupId):   func(body []byte) { c.handleTypingFrame(epoch, body) },
		transport.GroupReadTopic(groupId):     func(body []byte) { c.handleReadFrame(epoch, body) },
		transport.GroupPresenceTopic(groupId): func(body []byte) { c.handlePresenceFrame(epoch, body) },
	}

	for dest, handler := range topics {
		sub, err := c.ts.Subscribe(dest, handler)
		if err != nil {
			c.log.Printf("subscribe %s: %v", dest, err)
			continue
		}
		c.subs = append(c.subs, sub)
	}
}

// Frame handlers run on transport goroutines: decode, then hand off to the
// run loop. Malformed payloads are logged and dropped, never fatal.

func (c *Client) handleGroupFrame(epoch int, body []byte) {
	var ev groupEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.log.Println("parse group event:", err)
		return
	}

	switch ev.Type {
	case eventMessageNew, eventMessageEdited:
		if ev.Message == nil {
			c.log.Printf("group event %q without message", ev.Type)
			return
		}
		c.post(loopEvent{epoch: epoch, message: ev.Message})
	case eventMessageDeleted:
		if ev.MessageId == "" {
			c.log.Println("message.deleted event without messageId")
			return
		}
		c.post(loopEvent{epoch: epoch, deletedId: ev.MessageId})
	default:
		c.log.Printf("unknown group event type %q", ev.Type)
	}
}

func (c *Client) handleTypingFrame(epoch int, body []byte) {
	var ev types.TypingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.log.Println("parse typing event:", err)
		return
	}

	c.post(loopEvent{epoch: epoch, typing: &ev})
}

func (c *Client) handleReadFrame(epoch int, body []byte) {
	var status types.ReadStatus
	if err := json.Unmarshal(body, &status); err != nil {
		c.log.Println("parse read status event:", err)
		return
	}

	c.post(loopEvent{epoch: epoch, read: &status})
}

func (c *Client) handlePresenceFrame(epoch int, body []byte) {
	var ev types.PresenceEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.log.Println("parse presence event:", err)
		return
	}

	c.post(loopEvent{epoch: epoch, presence: &ev})
}

func (c *Client) handleNotificationFrame(body []byte) {
	var n types.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		c.log.Println("parse notification:", err)
		return
	}
	n.ReceivedAt = time.Now()

	c.post(loopEvent{notification: &n})
}

func (c *Client) post(ev loopEvent) {
	select {
	case c.events <- ev:
	default:
		c.log.Println("event queue full, dropping event")
	}
}

// SelectGroup switches the active conversation. All state for the previous
// group is discarded; the new group's newest history page and read statuses
// are loaded and its topics subscribed.
func (c *Client) SelectGroup(groupId string) {
	c.post(loopEvent{selectGroup: &groupId})
}

// LoadOlder pages further back in the active group's history.
func (c *Client) LoadOlder() {
	c.post(loopEvent{loadOlder: true})
}

// Send delivers a message to the active group, choosing realtime publish or
// REST fallback. The REST path's canonical response is applied through the
// run loop; a group switch racing the call leaves no trace.
func (c *Client) Send(ctx context.Context, opts SendOptions) error {
	groupId, epoch, ok := c.activeGroup()
	if !ok {
		return ErrNoActiveGroup
	}

	echo, err := c.dispatcher.Send(ctx, groupId, opts)
	if err != nil {
		return err
	}

	if echo != nil {
		c.post(loopEvent{epoch: epoch, message: echo})
	}

	return nil
}

func (c *Client) EditMessage(ctx context.Context, messageId, content string) error {
	groupId, epoch, ok := c.activeGroup()
	if !ok {
		return ErrNoActiveGroup
	}

	msg, err := c.dispatcher.Edit(ctx, groupId, messageId, content)
	if err != nil {
		return err
	}

	if msg != nil {
		c.post(loopEvent{epoch: epoch, message: msg})
	}

	return nil
}

func (c *Client) RemoveMessage(ctx context.Context, messageId string) error {
	groupId, epoch, ok := c.activeGroup()
	if !ok {
		return ErrNoActiveGroup
	}

	applyNow, err := c.dispatcher.Remove(ctx, groupId, messageId)
	if err != nil {
		return err
	}

	if applyNow {
		c.post(loopEvent{epoch: epoch, deletedId: messageId})
	}

	return nil
}

// MarkRead reports the read position. Fire-and-forget: a failure is logged,
// never retried and never blocks message display.
func (c *Client) MarkRead(messageId string) {
	groupId, epoch, ok := c.activeGroup()
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		status, err := c.dispatcher.SendRead(ctx, groupId, messageId)
		if err != nil {
			c.log.Println("mark read:", err)
			return
		}

		c.post(loopEvent{epoch: epoch, read: status})
	}()
}

func (c *Client) SetTyping(isTyping bool) {
	groupId, _, ok := c.activeGroup()
	if !ok {
		return
	}

	if err := c.dispatcher.SendTyping(groupId, isTyping); err != nil {
		c.log.Println("send typing:", err)
	}
}

func (c *Client) SetPresence(status types.PresenceStatus) {
	groupId, _, ok := c.activeGroup()
	if !ok {
		return
	}

	if err := c.dispatcher.SendPresence(groupId, status); err != nil {
		c.log.Println("send presence:", err)
	}
}

func (c *Client) activeGroup() (groupId string, epoch int, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conv.groupId == "" {
		return "", 0, false
	}

	return c.conv.groupId, c.epoch, true
}

// Snapshot is an immutable copy of the view state for rendering.
type Snapshot struct {
	Connected     bool
	GroupId       string
	Messages      []types.Message
	HasMore       bool
	Typing        []types.TypingEvent
	Presence      []types.PresenceEvent
	Reads         map[string]types.ReadStatus
	Notifications []types.Notification
	// HistoryErr is the retryable error state of the last history load.
	HistoryErr error
}

func (c *Client) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Connected:  c.connected,
		GroupId:    c.conv.groupId,
		HasMore:    c.conv.hasMore,
		HistoryErr: c.histErr,
		Messages:   make([]types.Message, len(c.conv.messages)),
		Reads:      make(map[string]types.ReadStatus, len(c.conv.reads)),
	}
	copy(snap.Messages, c.conv.messages)

	for _, ev := range c.conv.typing {
		snap.Typing = append(snap.Typing, ev)
	}
	slices.SortFunc(snap.Typing, func(a, b types.TypingEvent) int {
		return strings.Compare(a.UserName, b.UserName)
	})

	for _, ev := range c.conv.presence {
		snap.Presence = append(snap.Presence, ev)
	}
	slices.SortFunc(snap.Presence, func(a, b types.PresenceEvent) int {
		return strings.Compare(a.UserName, b.UserName)
	})

	for userId, status := range c.conv.reads {
		snap.Reads[userId] = status
	}

	snap.Notifications = make([]types.Notification, len(c.notifications))
	copy(snap.Notifications, c.notifications)

	return snap
}

// ReadCount derives "read by N others" for a loaded message.
func (c *Client) ReadCount(messageId string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.conv.readCount(messageId)
}

// ClearNotifications empties the notification buffer, called when the user
// views the notifications surface.
func (c *Client) ClearNotifications() {
	c.mu.Lock()
	c.notifications = nil
	c.mu.Unlock()

	c.signalUpdate()
}

// Updates is a coalesced change signal: the channel holds at most one
// pending notification, and readers re-render from Snapshot.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

func (c *Client) signalUpdate() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *Client) Close() error {
	if c.notifSub != nil {
		if err := c.notifSub.Unsubscribe(); err != nil {
			c.log.Println("unsubscribe notifications:", err)
		}
	}

	close(c.stop)
	<-c.done

	return nil
}
