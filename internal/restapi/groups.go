package restapi

import (
	"context"
	"net/http"

	"github.com/gochat-dev/chatclient/internal/types"
)

func (c *Client) ListGroups(ctx context.Context) ([]types.Group, error) {
	var groups []types.Group
	if err := c.do(ctx, http.MethodGet, "/groups", nil, nil, &groups); err != nil {
		return nil, err
	}

	return groups, nil
}

func (c *Client) CreateGroup(ctx context.Context, req types.CreateGroupRequest) (*types.Group, error) {
	var group types.Group
	if err := c.do(ctx, http.MethodPost, "/groups", nil, req, &group); err != nil {
		return nil, err
	}

	return &group, nil
}

func (c *Client) GetGroup(ctx context.Context, groupId string) (*types.GroupDetail, error) {
	var detail types.GroupDetail
	if err := c.do(ctx, http.MethodGet, "/groups/"+groupId, nil, nil, &detail); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (c *Client) UpdateGroup(ctx context.Context, groupId string, req types.UpdateGroupRequest) (*types.Group, error) {
	var group types.Group
	if err := c.do(ctx, http.MethodPatch, "/groups/"+groupId, nil, req, &group); err != nil {
		return nil, err
	}

	return &group, nil
}

func (c *Client) DeleteGroup(ctx context.Context, groupId string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+groupId, nil, nil, nil)
}
