package types

import (
	"encoding/json"
	"time"
)

type UserSummary struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl,omitempty"`
}

type UserDetail struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	AvatarUrl string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func (u UserDetail) Summary() UserSummary {
	return UserSummary{Id: u.Id, Name: u.Name, AvatarUrl: u.AvatarUrl}
}

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeSystem MessageType = "system"
)

type ReplyTo struct {
	MessageId  string `json:"messageId"`
	SenderName string `json:"senderName,omitempty"`
	Excerpt    string `json:"excerpt,omitempty"`
}

type Message struct {
	Id          string      `json:"id"`
	GroupId     string      `json:"groupId"`
	Sender      UserSummary `json:"sender"`
	Content     string      `json:"content"`
	ImageUrl    string      `json:"imageUrl,omitempty"`
	MessageType MessageType `json:"messageType"`
	ReplyTo     *ReplyTo    `json:"replyTo,omitempty"`
	Mentions    []string    `json:"mentions,omitempty"`
	IsEdited    bool        `json:"isEdited,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   *time.Time  `json:"updatedAt,omitempty"`
	// TemporaryId is the client-assigned id carried on the server's echo of
	// a realtime send, used to reconcile optimistic entries.
	TemporaryId string `json:"temporaryId,omitempty"`
}

type Group struct {
	Id          string    `json:"id"`
	Name        string    `json:"name"`
	IconUrl     string    `json:"iconUrl,omitempty"`
	MemberCount int       `json:"memberCount"`
	UnreadCount int       `json:"unreadCount"`
	LastMessage *Message  `json:"lastMessage,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type GroupDetail struct {
	Group
	Members []Member `json:"members"`
}

type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

type Member struct {
	UserId    string     `json:"userId"`
	UserName  string     `json:"userName"`
	AvatarUrl string     `json:"avatarUrl,omitempty"`
	Role      MemberRole `json:"role"`
	JoinedAt  time.Time  `json:"joinedAt,omitempty"`
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
	InvitationExpired  InvitationStatus = "expired"
)

type Invitation struct {
	Id          string           `json:"id"`
	GroupId     string           `json:"groupId"`
	GroupName   string           `json:"groupName"`
	InvitedBy   UserSummary      `json:"invitedBy"`
	InvitedUser UserSummary      `json:"invitedUser"`
	Message     string           `json:"message,omitempty"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"createdAt,omitempty"`
	ExpiresAt   time.Time        `json:"expiresAt,omitempty"`
}

type TypingEvent struct {
	GroupId  string `json:"groupId"`
	UserId   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceAway    PresenceStatus = "away"
	PresenceOffline PresenceStatus = "offline"
)

type PresenceEvent struct {
	GroupId    string         `json:"groupId"`
	UserId     string         `json:"userId"`
	UserName   string         `json:"userName"`
	Status     PresenceStatus `json:"status"`
	LastActive time.Time      `json:"lastActive,omitempty"`
}

type ReadStatus struct {
	UserId            string    `json:"userId"`
	UserName          string    `json:"userName"`
	LastReadMessageId string    `json:"lastReadMessageId"`
	LastReadAt        time.Time `json:"lastReadAt"`
}

type NotificationKind string

const (
	NotificationInvitation   NotificationKind = "invitation"
	NotificationMention      NotificationKind = "mention"
	NotificationGroupUpdated NotificationKind = "group-updated"
)

type Notification struct {
	Kind       NotificationKind `json:"kind"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
	ReceivedAt time.Time        `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn,omitempty"`
}

type AuthResponse struct {
	User   UserDetail    `json:"user"`
	Tokens TokenResponse `json:"tokens"`
}

type SendMessageRequest struct {
	// TemporaryId makes the send idempotent: a server that already stored a
	// message for this id returns it instead of creating a second one.
	TemporaryId      string   `json:"temporaryId,omitempty"`
	Content          string   `json:"content"`
	ImageUrl         string   `json:"imageUrl,omitempty"`
	ReplyToMessageId string   `json:"replyToMessageId,omitempty"`
	Mentions         []string `json:"mentions,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type MessageListResponse struct {
	// Messages are returned newest-first by the API.
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"hasMore"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

type CreateGroupRequest struct {
	Name             string   `json:"name"`
	IconUrl          string   `json:"iconUrl,omitempty"`
	InitialMemberIds []string `json:"initialMemberIds,omitempty"`
}

type UpdateGroupRequest struct {
	Name    string `json:"name,omitempty"`
	IconUrl string `json:"iconUrl,omitempty"`
}

type InviteMemberRequest struct {
	UserId  string `json:"userId"`
	Message string `json:"message,omitempty"`
}

type InvitationAction string

const (
	InvitationActionAccept InvitationAction = "accept"
	InvitationActionReject InvitationAction = "reject"
)

type RespondInvitationRequest struct {
	Action InvitationAction `json:"action"`
}

type LeaveGroupRequest struct {
	NewAdminUserId string `json:"newAdminUserId,omitempty"`
}

type ImageUploadResponse struct {
	ImageId      string `json:"imageId"`
	ImageUrl     string `json:"imageUrl"`
	ThumbnailUrl string `json:"thumbnailUrl,omitempty"`
}

type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
