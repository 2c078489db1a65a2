// Package resolve navigates between entities by id. Entities carry no handle to
// the session, so every function takes the Lookup that answers the query, and no
// result is cached: each call reflects the session's state at that moment.
package resolve

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
	"golang.org/x/sync/errgroup"
)

// maxFanOut bounds concurrent lookups for multi-id references.
const maxFanOut = 8

// Lookup fetches entities by id. Implementations return an error matching
// errs.ErrNotFound when the id no longer resolves.
type Lookup interface {
	ChatByID(ctx context.Context, id wid.ID) (model.Chat, error)
	ContactByID(ctx context.Context, id wid.ID) (model.Contact, error)
	MessageByID(ctx context.Context, id wid.MessageID) (model.Message, error)
}

// QuoteSource fetches the message a reply quotes.
type QuoteSource interface {
	QuotedOf(ctx context.Context, id wid.MessageID) (model.Message, error)
}

// LabelSource lists the chats carrying a label.
type LabelSource interface {
	ChatsByLabelID(ctx context.Context, labelID string) ([]model.Chat, error)
}

// MessageChat returns the chat a message belongs to.
func MessageChat(ctx context.Context, l Lookup, m model.Message) (model.Chat, error) {
	c, err := l.ChatByID(ctx, m.ChatID())
	if err != nil {
		return model.Chat{}, fmt.Errorf("resolve chat of message %s: %w", m.ID, err)
	}
	return c, nil
}

// MessageContact returns the contact who sent a message.
func MessageContact(ctx context.Context, l Lookup, m model.Message) (model.Contact, error) {
	c, err := contact(ctx, l, m.SenderID())
	if err != nil {
		return model.Contact{}, fmt.Errorf("resolve sender of message %s: %w", m.ID, err)
	}
	return c, nil
}

// Mentions returns the contacts mentioned in a message, in mention order.
func Mentions(ctx context.Context, l Lookup, m model.Message) ([]model.Contact, error) {
	out, err := contacts(ctx, l, m.MentionedIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve mentions of message %s: %w", m.ID, err)
	}
	return out, nil
}

// QuotedMessage returns the message m replies to. When m quotes nothing the
// result is (zero, false, nil) and no remote call is made.
func QuotedMessage(ctx context.Context, q QuoteSource, m model.Message) (model.Message, bool, error) {
	if !m.HasQuotedMsg {
		return model.Message{}, false, nil
	}
	quoted, err := q.QuotedOf(ctx, m.ID)
	if err != nil {
		return model.Message{}, false, fmt.Errorf("resolve quoted message of %s: %w", m.ID, err)
	}
	return quoted, true, nil
}

// ChatContact returns the contact behind a chat. For a group chat this is the
// group's own contact entry.
func ChatContact(ctx context.Context, l Lookup, c model.Chat) (model.Contact, error) {
	ct, err := l.ContactByID(ctx, c.ID)
	if err != nil {
		return model.Contact{}, fmt.Errorf("resolve contact of chat %s: %w", c.ID, err)
	}
	return ct, nil
}

// ContactChat returns the chat with a contact.
func ContactChat(ctx context.Context, l Lookup, c model.Contact) (model.Chat, error) {
	ch, err := l.ChatByID(ctx, c.ID)
	if err != nil {
		return model.Chat{}, fmt.Errorf("resolve chat of contact %s: %w", c.ID, err)
	}
	return ch, nil
}

// NotificationChat returns the group a notification was posted in.
func NotificationChat(ctx context.Context, l Lookup, n model.GroupNotification) (model.Chat, error) {
	c, err := l.ChatByID(ctx, n.ChatID)
	if err != nil {
		return model.Chat{}, fmt.Errorf("resolve chat of notification %s: %w", n.ID, err)
	}
	return c, nil
}

// NotificationContact returns the contact who caused a notification.
func NotificationContact(ctx context.Context, l Lookup, n model.GroupNotification) (model.Contact, error) {
	c, err := contact(ctx, l, n.Author)
	if err != nil {
		return model.Contact{}, fmt.Errorf("resolve author of notification %s: %w", n.ID, err)
	}
	return c, nil
}

// Recipients returns the contacts a notification affected, in source order.
func Recipients(ctx context.Context, l Lookup, n model.GroupNotification) ([]model.Contact, error) {
	out, err := contacts(ctx, l, n.RecipientIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients of notification %s: %w", n.ID, err)
	}
	return out, nil
}

// LabelChats returns the chats carrying a label.
func LabelChats(ctx context.Context, s LabelSource, label model.Label) ([]model.Chat, error) {
	chats, err := s.ChatsByLabelID(ctx, label.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve chats of label %s: %w", label.ID, err)
	}
	return chats, nil
}

func contact(ctx context.Context, l Lookup, id wid.ID) (model.Contact, error) {
	if id.IsZero() {
		return model.Contact{}, errs.ErrNotFound
	}
	return l.ContactByID(ctx, id)
}

func contacts(ctx context.Context, l Lookup, ids []wid.ID) ([]model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]model.Contact, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFanOut)
	for i, id := range ids {
		g.Go(func() error {
			c, err := l.ContactByID(ctx, id)
			if err != nil {
				return fmt.Errorf("contact %s: %w", id, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
