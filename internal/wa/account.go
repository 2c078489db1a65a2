package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/host"
)

// SetStatus sets the account's about text.
func (c *Client) SetStatus(ctx context.Context, text string) error {
	if err := c.call(ctx, host.QuerySetStatus, text); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// SetDisplayName sets the account's push name. It reports false when the
// session refused.
func (c *Client) SetDisplayName(ctx context.Context, name string) (bool, error) {
	ok, err := c.callBool(ctx, host.QuerySetDisplayName, name)
	if err != nil {
		return false, fmt.Errorf("set display name: %w", err)
	}
	return ok, nil
}

// SendPresenceAvailable marks the account online.
func (c *Client) SendPresenceAvailable(ctx context.Context) error {
	if err := c.call(ctx, host.QueryPresence); err != nil {
		return fmt.Errorf("send presence: %w", err)
	}
	return nil
}

// ResetState forces the session to reset its connection.
func (c *Client) ResetState(ctx context.Context) error {
	if err := c.call(ctx, host.QueryResetState); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}

// RestoreSession hands the held credential blob to the host so the session can
// resume without pairing. It reports false when there is no blob or the host
// declined it; the host then falls back to a pairing code.
func (c *Client) RestoreSession(ctx context.Context) (bool, error) {
	blob := c.Session()
	if len(blob) == 0 {
		return false, nil
	}
	ok, err := c.callBool(ctx, host.QueryRestoreSession, blob)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	return ok, nil
}

// Logout ends the session on the phone. The host reports the resulting
// disconnect on its event stream.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.call(ctx, host.QueryLogout); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	return nil
}
