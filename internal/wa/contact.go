package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/model"
)

// BlockContact blocks a contact.
func (c *Client) BlockContact(ctx context.Context, ct model.Contact) error {
	if err := c.call(ctx, host.QueryContactBlock, ct.ID.String()); err != nil {
		return fmt.Errorf("block contact %s: %w", ct.ID, err)
	}
	return nil
}

// UnblockContact unblocks a contact.
func (c *Client) UnblockContact(ctx context.Context, ct model.Contact) error {
	if err := c.call(ctx, host.QueryContactUnblock, ct.ID.String()); err != nil {
		return fmt.Errorf("unblock contact %s: %w", ct.ID, err)
	}
	return nil
}
