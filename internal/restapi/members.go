package restapi

import (
	"context"
	"net/http"

	"github.com/gochat-dev/chatclient/internal/types"
)

func (c *Client) ListMembers(ctx context.Context, groupId string) ([]types.Member, error) {
	var members []types.Member
	if err := c.do(ctx, http.MethodGet, "/groups/"+groupId+"/members", nil, nil, &members); err != nil {
		return nil, err
	}

	return members, nil
}

func (c *Client) InviteMember(ctx context.Context, groupId string, req types.InviteMemberRequest) (*types.Invitation, error) {
	var inv types.Invitation
	if err := c.do(ctx, http.MethodPost, "/groups/"+groupId+"/invitations", nil, req, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (c *Client) RespondToInvitation(ctx context.Context, groupId, invitationId string, action types.InvitationAction) (*types.Member, error) {
	req := types.RespondInvitationRequest{Action: action}

	var member types.Member
	if err := c.do(ctx, http.MethodPost, "/groups/"+groupId+"/invitations/"+invitationId, nil, req, &member); err != nil {
		return nil, err
	}

	return &member, nil
}

func (c *Client) RemoveMember(ctx context.Context, groupId, userId string) error {
	return c.do(ctx, http.MethodDelete, "/groups/"+groupId+"/members/"+userId, nil, nil, nil)
}

// LeaveGroup removes the current user from the group. An admin leaving a
// group with other members must name a successor in newAdminUserId.
func (c *Client) LeaveGroup(ctx context.Context, groupId, newAdminUserId string) error {
	req := types.LeaveGroupRequest{NewAdminUserId: newAdminUserId}
	return c.do(ctx, http.MethodPost, "/groups/"+groupId+"/leave", nil, req, nil)
}

func (c *Client) MyInvitations(ctx context.Context) ([]types.Invitation, error) {
	var invs []types.Invitation
	if err := c.do(ctx, http.MethodGet, "/invitations", nil, nil, &invs); err != nil {
		return nil, err
	}

	return invs, nil
}
