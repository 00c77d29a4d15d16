package restapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gochat-dev/chatclient/internal/types"
)

// DefaultPageSize is the server's default history page size.
const DefaultPageSize = 50

// ListMessages fetches a page of messages strictly older than before, or the
// newest page when before is empty. The page comes back newest-first.
func (c *Client) ListMessages(ctx context.Context, groupId, before string, limit int) (*types.MessageListResponse, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if before != "" {
		query.Set("before", before)
	}

	var resp types.MessageListResponse
	if err := c.do(ctx, http.MethodGet, "/groups/"+groupId+"/messages", query, nil, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (c *Client) SendMessage(ctx context.Context, groupId string, req types.SendMessageRequest) (*types.Message, error) {
	var msg types.Message
	if err := c.do(ctx, http.MethodPost, "/groups/"+groupId+"/messages", nil, req, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (c *Client) EditMessage(ctx context.Context, groupId, messageId string, req types.EditMessageRequest) (*types.Message, error) {
	var msg types.Message
	if err := c.do(ctx, http.MethodPatch, "/groups/"+groupId+"/messages/"+messageId, nil, req, &msg); err != nil {
		return nil, err
	}

	return &msg, nil
}

// DeleteMessage is a logical delete; the server keeps the record.
func (c *Client) DeleteMessage(ctx context.Context, groupId, messageId string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+groupId+"/messages/"+messageId, nil, nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, groupId, messageId string) (*types.ReadStatus, error) {
	var status types.ReadStatus
	if err := c.do(ctx, http.MethodPost, "/groups/"+groupId+"/messages/"+messageId+"/read", nil, nil, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

func (c *Client) ReadStatuses(ctx context.Context, groupId string) ([]types.ReadStatus, error) {
	var statuses []types.ReadStatus
	if err := c.do(ctx, http.MethodGet, "/groups/"+groupId+"/read-status", nil, nil, &statuses); err != nil {
		return nil, err
	}

	return statuses, nil
}
