package wa

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
)

// Participant actions understood by the session.
const (
	participantsAdd     = "add"
	participantsRemove  = "remove"
	participantsPromote = "promote"
	participantsDemote  = "demote"
)

// Group settings.
const (
	settingAnnouncement = "announcement"
	settingRestrict     = "restrict"
)

// CreateGroupResult is the outcome of CreateGroup. Missing maps participants
// that could not be added to the session's error code.
type CreateGroupResult struct {
	GroupID wid.ID         `json:"gid"`
	Missing map[string]int `json:"missingParticipants"`
}

// groupID rejects private chats before any remote call.
func groupID(chat model.Chat) (string, error) {
	if !chat.IsGroup() {
		return "", fmt.Errorf("chat %s: %w", chat.ID, errs.ErrNotGroup)
	}
	return chat.ID.String(), nil
}

// AddParticipants adds contacts to a group.
func (c *Client) AddParticipants(ctx context.Context, chat model.Chat, ids []wid.ID) error {
	return c.participants(ctx, chat, participantsAdd, ids)
}

// RemoveParticipants removes contacts from a group.
func (c *Client) RemoveParticipants(ctx context.Context, chat model.Chat, ids []wid.ID) error {
	return c.participants(ctx, chat, participantsRemove, ids)
}

// PromoteParticipants makes participants group admins.
func (c *Client) PromoteParticipants(ctx context.Context, chat model.Chat, ids []wid.ID) error {
	return c.participants(ctx, chat, participantsPromote, ids)
}

// DemoteParticipants revokes admin rights.
func (c *Client) DemoteParticipants(ctx context.Context, chat model.Chat, ids []wid.ID) error {
	return c.participants(ctx, chat, participantsDemote, ids)
}

func (c *Client) participants(ctx context.Context, chat model.Chat, action string, ids []wid.ID) error {
	gid, err := groupID(chat)
	if err != nil {
		return err
	}
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		list = append(list, id.String())
	}
	if err := c.call(ctx, host.QueryGroupParticipant, gid, action, list); err != nil {
		return fmt.Errorf("%s participants of %s: %w", action, gid, err)
	}
	return nil
}

// SetSubject renames a group. It reports false when the account may not.
func (c *Client) SetSubject(ctx context.Context, chat model.Chat, subject string) (bool, error) {
	gid, err := groupID(chat)
	if err != nil {
		return false, err
	}
	ok, err := c.callBool(ctx, host.QueryGroupSubject, gid, subject)
	if err != nil {
		return false, fmt.Errorf("set subject of %s: %w", gid, err)
	}
	return ok, nil
}

// SetDescription changes a group's description.
func (c *Client) SetDescription(ctx context.Context, chat model.Chat, description string) (bool, error) {
	gid, err := groupID(chat)
	if err != nil {
		return false, err
	}
	ok, err := c.callBool(ctx, host.QueryGroupDescription, gid, description)
	if err != nil {
		return false, fmt.Errorf("set description of %s: %w", gid, err)
	}
	return ok, nil
}

// SetMessagesAdminsOnly restricts sending messages to admins.
func (c *Client) SetMessagesAdminsOnly(ctx context.Context, chat model.Chat, adminsOnly bool) (bool, error) {
	return c.setting(ctx, chat, settingAnnouncement, adminsOnly)
}

// SetInfoAdminsOnly restricts editing group info to admins.
func (c *Client) SetInfoAdminsOnly(ctx context.Context, chat model.Chat, adminsOnly bool) (bool, error) {
	return c.setting(ctx, chat, settingRestrict, adminsOnly)
}

func (c *Client) setting(ctx context.Context, chat model.Chat, setting string, on bool) (bool, error) {
	gid, err := groupID(chat)
	if err != nil {
		return false, err
	}
	ok, err := c.callBool(ctx, host.QueryGroupSettings, gid, setting, on)
	if err != nil {
		return false, fmt.Errorf("set %s of %s: %w", setting, gid, err)
	}
	return ok, nil
}

// InviteCode returns the group's current invite code.
func (c *Client) InviteCode(ctx context.Context, chat model.Chat) (string, error) {
	gid, err := groupID(chat)
	if err != nil {
		return "", err
	}
	var code string
	if _, err := c.evalInto(ctx, &code, host.QueryGroupInviteCode, gid); err != nil {
		return "", fmt.Errorf("invite code of %s: %w", gid, err)
	}
	return code, nil
}

// RevokeInvite invalidates the current invite code.
func (c *Client) RevokeInvite(ctx context.Context, chat model.Chat) error {
	gid, err := groupID(chat)
	if err != nil {
		return err
	}
	if err := c.call(ctx, host.QueryGroupRevokeInv, gid); err != nil {
		return fmt.Errorf("revoke invite of %s: %w", gid, err)
	}
	return nil
}

// LeaveGroup makes the account leave a group.
func (c *Client) LeaveGroup(ctx context.Context, chat model.Chat) error {
	gid, err := groupID(chat)
	if err != nil {
		return err
	}
	if err := c.call(ctx, host.QueryGroupLeave, gid); err != nil {
		return fmt.Errorf("leave group %s: %w", gid, err)
	}
	return nil
}

// CreateGroup creates a group with the given participants.
func (c *Client) CreateGroup(ctx context.Context, name string, participants []wid.ID) (CreateGroupResult, error) {
	ids := make([]string, 0, len(participants))
	for _, id := range participants {
		ids = append(ids, id.String())
	}
	var res CreateGroupResult
	ok, err := c.evalInto(ctx, &res, host.QueryGroupCreate, name, ids)
	if err != nil {
		return CreateGroupResult{}, fmt.Errorf("create group %q: %w", name, err)
	}
	if !ok || res.GroupID.IsZero() {
		return CreateGroupResult{}, fmt.Errorf("create group %q: %w", name, errs.Malformed("group", "gid"))
	}
	return res, nil
}

// AcceptInvite joins a group by invite code and returns its id.
func (c *Client) AcceptInvite(ctx context.Context, code string) (wid.ID, error) {
	var gid wid.ID
	ok, err := c.evalInto(ctx, &gid, host.QueryGroupAcceptInv, code)
	if err != nil {
		return wid.ID{}, fmt.Errorf("accept invite: %w", err)
	}
	if !ok || gid.IsZero() {
		return wid.ID{}, fmt.Errorf("accept invite: %w", errs.ErrNotFound)
	}
	return gid, nil
}

// AcceptGroupV4Invite joins a group from a private invite message and returns
// the session's status code.
func (c *Client) AcceptGroupV4Invite(ctx context.Context, invite model.InviteV4) (int, error) {
	arg := map[string]any{
		"inviteCode":    invite.InviteCode,
		"inviteCodeExp": invite.InviteCodeExp,
		"groupId":       invite.GroupID,
		"groupName":     invite.GroupName,
		"fromId":        invite.FromID,
		"toId":          invite.ToID,
	}
	var res struct {
		Status int `json:"status"`
	}
	if _, err := c.evalInto(ctx, &res, host.QueryAcceptInviteV4, arg); err != nil {
		return 0, fmt.Errorf("accept group invite %s: %w", invite.GroupID, err)
	}
	return res.Status, nil
}

// InviteInfo describes the group behind an invite code as the session reports it.
func (c *Client) InviteInfo(ctx context.Context, code string) (json.RawMessage, error) {
	res, err := c.eval(ctx, host.QueryInviteInfo, code)
	if err != nil {
		return nil, fmt.Errorf("invite info: %w", err)
	}
	if host.IsNull(res) {
		return nil, fmt.Errorf("invite info: %w", errs.ErrNotFound)
	}
	return res, nil
}
