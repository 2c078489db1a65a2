package wa

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/wppweb/internal/history"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
)

// Chat presence states.
const (
	chatStateTyping    = "typing"
	chatStateRecording = "recording"
	chatStateStop      = "stop"
)

// SendSeen marks the chat as read.
func (c *Client) SendSeen(ctx context.Context, chatID wid.ID) (bool, error) {
	ok, err := c.callBool(ctx, host.QueryChatSendSeen, chatID.String())
	if err != nil {
		return false, fmt.Errorf("send seen to %s: %w", chatID, err)
	}
	return ok, nil
}

// ArchiveChat archives a chat and returns the new archive state.
func (c *Client) ArchiveChat(ctx context.Context, chatID wid.ID) (bool, error) {
	return c.chatToggle(ctx, host.QueryChatArchive, "archive", chatID, true)
}

// UnarchiveChat restores an archived chat and returns the new archive state.
func (c *Client) UnarchiveChat(ctx context.Context, chatID wid.ID) (bool, error) {
	return c.chatToggle(ctx, host.QueryChatArchive, "unarchive", chatID, false)
}

// PinChat pins a chat and returns the new pin state. The session refuses to pin
// beyond its own limit, in which case the state stays false.
func (c *Client) PinChat(ctx context.Context, chatID wid.ID) (bool, error) {
	return c.chatToggle(ctx, host.QueryChatPin, "pin", chatID, true)
}

// UnpinChat unpins a chat and returns the new pin state.
func (c *Client) UnpinChat(ctx context.Context, chatID wid.ID) (bool, error) {
	return c.chatToggle(ctx, host.QueryChatPin, "unpin", chatID, false)
}

func (c *Client) chatToggle(ctx context.Context, q host.Query, verb string, chatID wid.ID, on bool) (bool, error) {
	state, err := c.callBool(ctx, q, chatID.String(), on)
	if err != nil {
		return false, fmt.Errorf("%s chat %s: %w", verb, chatID, err)
	}
	return state, nil
}

// MuteChat mutes a chat until the given time.
func (c *Client) MuteChat(ctx context.Context, chatID wid.ID, until time.Time) error {
	if err := c.call(ctx, host.QueryChatMute, chatID.String(), true, until.Unix()); err != nil {
		return fmt.Errorf("mute chat %s: %w", chatID, err)
	}
	return nil
}

// UnmuteChat unmutes a chat.
func (c *Client) UnmuteChat(ctx context.Context, chatID wid.ID) error {
	if err := c.call(ctx, host.QueryChatMute, chatID.String(), false); err != nil {
		return fmt.Errorf("unmute chat %s: %w", chatID, err)
	}
	return nil
}

// MarkChatUnread flags a chat as unread.
func (c *Client) MarkChatUnread(ctx context.Context, chatID wid.ID) error {
	if err := c.call(ctx, host.QueryChatMarkUnread, chatID.String()); err != nil {
		return fmt.Errorf("mark chat %s unread: %w", chatID, err)
	}
	return nil
}

// ClearMessages deletes every message of a chat.
func (c *Client) ClearMessages(ctx context.Context, chatID wid.ID) (bool, error) {
	ok, err := c.callBool(ctx, host.QueryChatClear, chatID.String())
	if err != nil {
		return false, fmt.Errorf("clear chat %s: %w", chatID, err)
	}
	return ok, nil
}

// DeleteChat deletes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID wid.ID) (bool, error) {
	ok, err := c.callBool(ctx, host.QueryChatDelete, chatID.String())
	if err != nil {
		return false, fmt.Errorf("delete chat %s: %w", chatID, err)
	}
	return ok, nil
}

// SendStateTyping shows "typing..." in the chat for about 25 seconds.
func (c *Client) SendStateTyping(ctx context.Context, chatID wid.ID) error {
	return c.chatState(ctx, chatID, chatStateTyping)
}

// SendStateRecording shows "recording audio..." in the chat for about 25 seconds.
func (c *Client) SendStateRecording(ctx context.Context, chatID wid.ID) error {
	return c.chatState(ctx, chatID, chatStateRecording)
}

// ClearState stops any typing or recording indicator.
func (c *Client) ClearState(ctx context.Context, chatID wid.ID) error {
	return c.chatState(ctx, chatID, chatStateStop)
}

func (c *Client) chatState(ctx context.Context, chatID wid.ID, state string) error {
	if err := c.call(ctx, host.QueryChatState, chatID.String(), state); err != nil {
		return fmt.Errorf("send chat state %s to %s: %w", state, chatID, err)
	}
	return nil
}

// FetchMessages returns the chat's most recent messages, earliest first.
func (c *Client) FetchMessages(ctx context.Context, chatID wid.ID, opts history.Options) ([]model.Message, error) {
	return c.history.FetchMessages(ctx, chatID, opts)
}

// FetchMessagesUntil loads history back to the landmark message.
func (c *Client) FetchMessagesUntil(ctx context.Context, chatID wid.ID, landmark model.Message) ([]model.Message, error) {
	return c.history.FetchMessagesUntil(ctx, chatID, landmark.ID)
}

// LoadMessage pages history until m is loaded in the session.
func (c *Client) LoadMessage(ctx context.Context, m model.Message) (bool, error) {
	return c.history.LoadMessage(ctx, m.ChatID(), m.ID)
}
