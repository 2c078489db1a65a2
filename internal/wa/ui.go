package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/wid"
)

// Interface drives the web client's user interface, for example to bring a
// chat to the foreground before a screenshot is taken.
type Interface struct {
	c *Client
}

// Interface returns the interface controller.
func (c *Client) Interface() Interface {
	return Interface{c: c}
}

// OpenChatWindow opens a chat in the main pane.
func (i Interface) OpenChatWindow(ctx context.Context, chatID wid.ID) error {
	return i.command(ctx, "open_chat_window", chatID.String())
}

// OpenChatDrawer opens a chat's info drawer.
func (i Interface) OpenChatDrawer(ctx context.Context, chatID wid.ID) error {
	return i.command(ctx, "open_chat_drawer", chatID.String())
}

// OpenChatSearch opens the in-chat search.
func (i Interface) OpenChatSearch(ctx context.Context, chatID wid.ID) error {
	return i.command(ctx, "open_chat_search", chatID.String())
}

// OpenChatWindowAt opens a message's chat scrolled to the message.
func (i Interface) OpenChatWindowAt(ctx context.Context, msgID wid.MessageID) error {
	return i.command(ctx, "open_chat_window_at", msgID.String())
}

// OpenMessageDrawer opens a message's info drawer.
func (i Interface) OpenMessageDrawer(ctx context.Context, msgID wid.MessageID) error {
	return i.command(ctx, "open_message_drawer", msgID.String())
}

// CloseRightDrawer closes whatever drawer is open.
func (i Interface) CloseRightDrawer(ctx context.Context) error {
	return i.command(ctx, "close_right_drawer", nil)
}

func (i Interface) command(ctx context.Context, name string, arg any) error {
	if err := i.c.call(ctx, host.QueryInterface, name, arg); err != nil {
		return fmt.Errorf("interface %s: %w", name, err)
	}
	return nil
}
