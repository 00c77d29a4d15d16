package chat

import (
	"github.com/gochat-dev/chatclient/internal/types"
)

// Discriminants on the per-group message topic.
const (
	eventMessageNew     = "message.new"
	eventMessageEdited  = "message.edited"
	eventMessageDeleted = "message.deleted"
)

// groupEvent is the envelope published on /topic/group/{id}. New and edited
// events carry the full message; deleted events carry only the id.
type groupEvent struct {
	Type      string         `json:"type"`
	GroupId   string         `json:"groupId,omitempty"`
	Message   *types.Message `json:"message,omitempty"`
	MessageId string         `json:"messageId,omitempty"`
}

// Outbound command bodies for the /app destinations.

type sendCommand struct {
	GroupId          string   `json:"groupId"`
	TemporaryId      string   `json:"temporaryId"`
	Content          string   `json:"content"`
	ImageUrl         string   `json:"imageUrl,omitempty"`
	ReplyToMessageId string   `json:"replyToMessageId,omitempty"`
	Mentions         []string `json:"mentions,omitempty"`
}

type typingCommand struct {
	GroupId  string `json:"groupId"`
	IsTyping bool   `json:"isTyping"`
}

type presenceCommand struct {
	GroupId string               `json:"groupId"`
	Status  types.PresenceStatus `json:"status"`
}
