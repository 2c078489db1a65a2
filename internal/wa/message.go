package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/resolve"
)

// DownloadMedia returns m's attachment, or nil when it has none or it cannot
// be resolved.
func (c *Client) DownloadMedia(ctx context.Context, m model.Message) (*model.MediaPayload, error) {
	return c.media.Download(ctx, m)
}

// QuotedMessage returns the message m replies to; the bool is false when it
// quotes nothing.
func (c *Client) QuotedMessage(ctx context.Context, m model.Message) (model.Message, bool, error) {
	return resolve.QuotedMessage(ctx, c, m)
}

// DeleteMessage deletes m. With everyone set, a message sent by the account is
// revoked for every participant; otherwise it is removed locally.
func (c *Client) DeleteMessage(ctx context.Context, m model.Message, everyone bool) error {
	if err := c.call(ctx, host.QueryMessageDelete, m.ID.String(), everyone && m.FromMe()); err != nil {
		return fmt.Errorf("delete message %s: %w", m.ID, err)
	}
	return nil
}

// StarMessage stars m.
func (c *Client) StarMessage(ctx context.Context, m model.Message) error {
	return c.star(ctx, m, true)
}

// UnstarMessage removes the star from m.
func (c *Client) UnstarMessage(ctx context.Context, m model.Message) error {
	return c.star(ctx, m, false)
}

func (c *Client) star(ctx context.Context, m model.Message, on bool) error {
	if err := c.call(ctx, host.QueryMessageStar, m.ID.String(), on); err != nil {
		return fmt.Errorf("star message %s: %w", m.ID, err)
	}
	return nil
}

// MessageInfo returns the delivery report of m, or nil when the session has
// none, for example because m was not sent by the account.
func (c *Client) MessageInfo(ctx context.Context, m model.Message) (*model.MessageInfo, error) {
	var info model.MessageInfo
	ok, err := c.evalInto(ctx, &info, host.QueryMessageInfo, m.ID.String())
	if err != nil {
		return nil, fmt.Errorf("message info of %s: %w", m.ID, err)
	}
	if !ok {
		return nil, nil
	}
	return &info, nil
}
