// Package wa is the typed client surface over a live session: entity accessors,
// sending, per-entity operations and event subscription. Every call is a round
// trip to the automation host; nothing is cached.
package wa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/bridge"
	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/history"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/media"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/resolve"
	"github.com/matheus3301/wppweb/internal/status"
	"github.com/matheus3301/wppweb/internal/wid"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	// HistoryLimit is the default FetchMessages limit.
	HistoryLimit int
	// Media bounds media resolution.
	Media media.Policy
	// Session is the opaque credential blob the session was restored from, if any.
	Session json.RawMessage
	Metrics *metrics.Metrics
}

// Client is the entry point to a session.
type Client struct {
	host    host.Host
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger
	history *history.Loader
	media   *media.Pipeline

	mu      sync.RWMutex
	session json.RawMessage
	unsub   func()
	done    chan struct{}
}

var (
	_ resolve.Lookup      = (*Client)(nil)
	_ resolve.QuoteSource = (*Client)(nil)
	_ resolve.LabelSource = (*Client)(nil)
)

// New creates a client. It watches the bus for new credentials until Close.
func New(h host.Host, b *bus.Bus, machine *status.Machine, logger *zap.Logger, opts Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Media == (media.Policy{}) {
		opts.Media = media.DefaultPolicy()
	}
	c := &Client{
		host:    h,
		bus:     b,
		machine: machine,
		logger:  logger,
		history: history.NewLoader(h, opts.HistoryLimit, opts.Metrics, logger.Named("history")),
		media:   media.NewPipeline(h, opts.Media, opts.Metrics, logger.Named("media")),
		session: opts.Session,
		done:    make(chan struct{}),
	}

	ch, unsub := b.Subscribe(bus.KindAuthenticated, 4)
	c.unsub = unsub
	go c.watchSession(ch)
	return c
}

// Close stops watching the bus. It does not close the host.
func (c *Client) Close() {
	c.unsub()
	<-c.done
}

func (c *Client) watchSession(ch <-chan bus.Event) {
	defer close(c.done)
	for ev := range ch {
		auth, ok := ev.Payload.(bridge.Authenticated)
		if !ok || len(auth.Session) == 0 {
			continue
		}
		c.mu.Lock()
		c.session = auth.Session
		c.mu.Unlock()
	}
}

// Session returns the latest credential blob: the one supplied at construction
// or the last one reported on authentication.
func (c *Client) Session() json.RawMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Status returns the current lifecycle state.
func (c *Client) Status() status.State {
	return c.machine.Current()
}

// Subscribe returns typed events whose kind starts with namespace, for example
// "message." or bus.KindReady.
func (c *Client) Subscribe(namespace string, bufSize int) (<-chan bus.Event, func()) {
	return c.bus.Subscribe(namespace, bufSize)
}

// GetChatByID returns a chat.
func (c *Client) GetChatByID(ctx context.Context, id wid.ID) (model.Chat, error) {
	return one(ctx, c, "chat", model.NewChat, host.QueryChatGet, id.String())
}

// ChatByID implements resolve.Lookup.
func (c *Client) ChatByID(ctx context.Context, id wid.ID) (model.Chat, error) {
	return c.GetChatByID(ctx, id)
}

// GetChats returns every chat of the session.
func (c *Client) GetChats(ctx context.Context) ([]model.Chat, error) {
	return list(ctx, c, "chat", model.NewChat, host.QueryChatList)
}

// GetContactByID returns a contact.
func (c *Client) GetContactByID(ctx context.Context, id wid.ID) (model.Contact, error) {
	return one(ctx, c, "contact", model.NewContact, host.QueryContactGet, id.String())
}

// ContactByID implements resolve.Lookup.
func (c *Client) ContactByID(ctx context.Context, id wid.ID) (model.Contact, error) {
	return c.GetContactByID(ctx, id)
}

// GetContacts returns every contact of the session.
func (c *Client) GetContacts(ctx context.Context) ([]model.Contact, error) {
	return list(ctx, c, "contact", model.NewContact, host.QueryContactList)
}

// GetMessageByID returns a message that is loaded in the session.
func (c *Client) GetMessageByID(ctx context.Context, id wid.MessageID) (model.Message, error) {
	return one(ctx, c, "message", model.NewMessage, host.QueryMessageGet, id.String())
}

// MessageByID implements resolve.Lookup.
func (c *Client) MessageByID(ctx context.Context, id wid.MessageID) (model.Message, error) {
	return c.GetMessageByID(ctx, id)
}

// QuotedOf implements resolve.QuoteSource.
func (c *Client) QuotedOf(ctx context.Context, id wid.MessageID) (model.Message, error) {
	return one(ctx, c, "quoted message", model.NewMessage, host.QueryMessageQuoted, id.String())
}

// GetLabels returns every label.
func (c *Client) GetLabels(ctx context.Context) ([]model.Label, error) {
	return list(ctx, c, "label", model.NewLabel, host.QueryLabelList)
}

// GetLabelByID returns a label.
func (c *Client) GetLabelByID(ctx context.Context, id string) (model.Label, error) {
	return one(ctx, c, "label", model.NewLabel, host.QueryLabelGet, id)
}

// GetChatLabels returns the labels assigned to a chat.
func (c *Client) GetChatLabels(ctx context.Context, chatID wid.ID) ([]model.Label, error) {
	return list(ctx, c, "label", model.NewLabel, host.QueryChatLabels, chatID.String())
}

// GetChatsByLabelID returns the chats carrying a label.
func (c *Client) GetChatsByLabelID(ctx context.Context, labelID string) ([]model.Chat, error) {
	return list(ctx, c, "chat", model.NewChat, host.QueryChatsByLabel, labelID)
}

// ChatsByLabelID implements resolve.LabelSource.
func (c *Client) ChatsByLabelID(ctx context.Context, labelID string) ([]model.Chat, error) {
	return c.GetChatsByLabelID(ctx, labelID)
}

// Info returns the connected account.
func (c *Client) Info(ctx context.Context) (model.ClientInfo, error) {
	return one(ctx, c, "client info", model.NewClientInfo, host.QueryClientInfo)
}

// BatteryStatus returns the paired phone's battery.
func (c *Client) BatteryStatus(ctx context.Context) (model.BatteryStatus, error) {
	var b model.BatteryStatus
	ok, err := c.evalInto(ctx, &b, host.QueryBatteryStatus)
	if err != nil {
		return model.BatteryStatus{}, err
	}
	if !ok {
		return model.BatteryStatus{}, fmt.Errorf("battery status: %w", errs.ErrNotFound)
	}
	return b, nil
}

// State returns the remote connection state.
func (c *Client) State(ctx context.Context) (State, error) {
	var s string
	if _, err := c.evalInto(ctx, &s, host.QueryState); err != nil {
		return "", err
	}
	return State(s), nil
}

// Version returns the version of the web client the session runs.
func (c *Client) Version(ctx context.Context) (string, error) {
	var v string
	if _, err := c.evalInto(ctx, &v, host.QueryVersion); err != nil {
		return "", err
	}
	return v, nil
}

// IsRegisteredUser reports whether id is a WhatsApp account.
func (c *Client) IsRegisteredUser(ctx context.Context, id wid.ID) (bool, error) {
	var ok bool
	if _, err := c.evalInto(ctx, &ok, host.QueryIsRegistered, id.String()); err != nil {
		return false, err
	}
	return ok, nil
}

// GetNumberID returns the account id registered for a phone number. The bool is
// false when the number has no account.
func (c *Client) GetNumberID(ctx context.Context, number string) (wid.ID, bool, error) {
	var id wid.ID
	ok, err := c.evalInto(ctx, &id, host.QueryNumberID, number)
	if err != nil || !ok || id.IsZero() {
		return wid.ID{}, false, err
	}
	return id, true, nil
}

// ProfilePicURL returns the contact's picture URL, or "" when privacy settings
// hide it.
func (c *Client) ProfilePicURL(ctx context.Context, id wid.ID) (string, error) {
	var url string
	if _, err := c.evalInto(ctx, &url, host.QueryProfilePicURL, id.String()); err != nil {
		return "", err
	}
	return url, nil
}

// ContactAbout returns the contact's about text. The bool is false when it is
// not visible.
func (c *Client) ContactAbout(ctx context.Context, id wid.ID) (string, bool, error) {
	var about string
	ok, err := c.evalInto(ctx, &about, host.QueryContactAbout, id.String())
	if err != nil || !ok {
		return "", false, err
	}
	return about, true, nil
}

// SearchOptions narrows SearchMessages.
type SearchOptions struct {
	ChatID wid.ID
	Page   int
	Limit  int
}

// SearchMessages runs a full-text search over the session's messages.
func (c *Client) SearchMessages(ctx context.Context, query string, opts SearchOptions) ([]model.Message, error) {
	return list(ctx, c, "message", model.NewMessage, host.QuerySearchMessages, query, searchArgs(opts))
}

func searchArgs(opts SearchOptions) map[string]any {
	args := map[string]any{}
	if !opts.ChatID.IsZero() {
		args["chatId"] = opts.ChatID.String()
	}
	if opts.Page > 0 {
		args["page"] = opts.Page
	}
	if opts.Limit > 0 {
		args["limit"] = opts.Limit
	}
	return args
}

func (c *Client) eval(ctx context.Context, q host.Query, args ...any) (json.RawMessage, error) {
	return c.host.Evaluate(ctx, q, args...)
}

// evalInto decodes the result of q into dst. It reports false for a null result.
func (c *Client) evalInto(ctx context.Context, dst any, q host.Query, args ...any) (bool, error) {
	res, err := c.eval(ctx, q, args...)
	if err != nil {
		return false, err
	}
	if host.IsNull(res) {
		return false, nil
	}
	if err := json.Unmarshal(res, dst); err != nil {
		return false, fmt.Errorf("decode result of %s: %w", q, err)
	}
	return true, nil
}

// call runs q for its side effect.
func (c *Client) call(ctx context.Context, q host.Query, args ...any) error {
	_, err := c.eval(ctx, q, args...)
	return err
}

// callBool runs q and decodes a boolean result; null is false.
func (c *Client) callBool(ctx context.Context, q host.Query, args ...any) (bool, error) {
	var ok bool
	if _, err := c.evalInto(ctx, &ok, q, args...); err != nil {
		return false, err
	}
	return ok, nil
}

func one[T any](ctx context.Context, c *Client, kind string, build func(json.RawMessage) (T, error), q host.Query, args ...any) (T, error) {
	var zero T
	res, err := c.eval(ctx, q, args...)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", kind, err)
	}
	if host.IsNull(res) {
		return zero, fmt.Errorf("get %s %v: %w", kind, args, errs.ErrNotFound)
	}
	v, err := build(res)
	if err != nil {
		return zero, fmt.Errorf("get %s: %w", kind, err)
	}
	return v, nil
}

// list builds every entry of an array result. Malformed entries are skipped.
func list[T any](ctx context.Context, c *Client, kind string, build func(json.RawMessage) (T, error), q host.Query, args ...any) ([]T, error) {
	res, err := c.eval(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	if host.IsNull(res) {
		return nil, nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(res, &raws); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, errs.Malformed(kind+" list", "items"))
	}
	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		v, err := build(raw)
		if err != nil {
			if errors.Is(err, errs.ErrMalformedPayload) {
				c.logger.Warn("skipping malformed entry", zap.String("kind", kind), zap.Error(err))
				continue
			}
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
