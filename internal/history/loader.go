// Package history loads a chat's messages backwards from the session, one earlier
// page at a time, until a count is reached, a landmark message appears, or the
// source runs out.
package history

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
	"go.uber.org/zap"
)

// DefaultLimit is used when neither the caller nor the configuration set a limit.
const DefaultLimit = 50

// Unlimited loads every message the source can provide.
const Unlimited = math.MaxInt

// Options controls FetchMessages.
type Options struct {
	// Limit is the maximum number of messages returned. Zero or negative means the
	// loader's default.
	Limit int
}

// Loader pages chat history through the automation host.
type Loader struct {
	host         host.Host
	logger       *zap.Logger
	metrics      *metrics.Metrics
	defaultLimit int
}

// NewLoader creates a history loader. A non-positive defaultLimit becomes DefaultLimit.
func NewLoader(h host.Host, defaultLimit int, m *metrics.Metrics, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	return &Loader{host: h, logger: logger, metrics: m, defaultLimit: defaultLimit}
}

// FetchMessages returns up to opts.Limit of the chat's most recent non-notification
// messages, earliest first.
func (l *Loader) FetchMessages(ctx context.Context, chatID wid.ID, opts Options) ([]model.Message, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = l.defaultLimit
	}

	buf, err := l.seed(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for len(buf.msgs) < limit {
		more, err := l.loadEarlier(ctx, chatID, buf)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	msgs := buf.sorted()
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// FetchMessagesUntil pages backwards until the landmark message has been loaded
// or the source is exhausted. The result is earliest first and starts at the
// landmark when it was found; no count limit applies.
func (l *Loader) FetchMessagesUntil(ctx context.Context, chatID wid.ID, landmark wid.MessageID) ([]model.Message, error) {
	buf, err := l.seed(ctx, chatID)
	if err != nil {
		return nil, err
	}
	for !buf.hasLocal(landmark.ID) {
		more, err := l.loadEarlier(ctx, chatID, buf)
		if err != nil {
			return nil, err
		}
		if !more {
			l.logger.Debug("history exhausted before landmark",
				zap.String("chat", chatID.String()),
				zap.String("landmark", landmark.String()),
			)
			break
		}
	}

	return trimToLandmark(buf, landmark.ID), nil
}

// trimToLandmark drops messages earlier than the landmark. A notification
// landmark is not in the result, so its timestamp marks the cut.
func trimToLandmark(buf *buffer, id string) []model.Message {
	msgs := buf.sorted()
	ts, ok := buf.local[id]
	if !ok {
		return msgs
	}
	i := slices.IndexFunc(msgs, func(m model.Message) bool { return m.ID.ID == id })
	if i < 0 {
		i = slices.IndexFunc(msgs, func(m model.Message) bool { return m.Timestamp >= ts })
		if i < 0 {
			return nil
		}
	}
	return msgs[i:]
}

// LoadMessage pages backwards until msgID has been materialized in the session
// so it can be addressed, for example to reply to an old message.
func (l *Loader) LoadMessage(ctx context.Context, chatID wid.ID, msgID wid.MessageID) (bool, error) {
	buf, err := l.seed(ctx, chatID)
	if err != nil {
		return false, err
	}
	key := msgID.String()
	for !buf.hasSerialized(key) {
		more, err := l.loadEarlier(ctx, chatID, buf)
		if err != nil {
			return false, err
		}
		if !more {
			return false, nil
		}
	}
	return true, nil
}

func (l *Loader) seed(ctx context.Context, chatID wid.ID) (*buffer, error) {
	res, err := l.host.Evaluate(ctx, host.QueryChatLoaded, chatID.String())
	if err != nil {
		return nil, fmt.Errorf("load messages of chat %s: %w", chatID, err)
	}
	if host.IsNull(res) {
		return nil, fmt.Errorf("load messages of chat %s: %w", chatID, errs.ErrNotFound)
	}
	page, err := l.decodePage(chatID, res)
	if err != nil {
		return nil, err
	}
	buf := newBuffer()
	buf.prepend(page)
	return buf, nil
}

// loadEarlier requests one earlier page and merges it into buf. It reports false
// once the source has nothing older.
func (l *Loader) loadEarlier(ctx context.Context, chatID wid.ID, buf *buffer) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("load earlier messages of chat %s: %w: %v", chatID, errs.ErrSessionUnavailable, err)
	}
	res, err := l.host.Evaluate(ctx, host.QueryChatLoadEarlier, chatID.String())
	if err != nil {
		return false, fmt.Errorf("load earlier messages of chat %s: %w", chatID, err)
	}
	if host.IsNull(res) {
		l.metrics.PageRequested(true)
		l.logger.Debug("no earlier messages", zap.String("chat", chatID.String()))
		return false, nil
	}
	page, err := l.decodePage(chatID, res)
	if err != nil {
		return false, err
	}
	l.metrics.PageRequested(false)
	added := buf.prepend(page)
	l.logger.Debug("loaded earlier messages",
		zap.String("chat", chatID.String()),
		zap.Int("page", len(page)),
		zap.Int("added", added),
		zap.Int("buffered", len(buf.msgs)),
	)
	// An empty page can never grow the buffer; treat it as the end.
	return len(page) > 0, nil
}

func (l *Loader) decodePage(chatID wid.ID, res json.RawMessage) ([]model.Message, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(res, &raws); err != nil {
		return nil, fmt.Errorf("decode message page of chat %s: %w", chatID, errs.Malformed("message page", "messages"))
	}
	page := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		m, err := model.NewMessage(raw)
		if err != nil {
			l.logger.Warn("skipping malformed message", zap.String("chat", chatID.String()), zap.Error(err))
			continue
		}
		page = append(page, m)
	}
	return page, nil
}

// buffer accumulates messages in source order, earliest page first.
type buffer struct {
	msgs []model.Message
	// serialized ids of every entry seen, notifications included.
	serialized map[string]struct{}
	// local id of every entry seen to its timestamp.
	local      map[string]int64
}

func newBuffer() *buffer {
	return &buffer{
		serialized: make(map[string]struct{}),
		local:      make(map[string]int64),
	}
}

// prepend places the page's new non-notification messages before the buffered
// ones and returns how many were added.
func (b *buffer) prepend(page []model.Message) int {
	fresh := make([]model.Message, 0, len(page))
	for _, m := range page {
		key := m.ID.String()
		if _, dup := b.serialized[key]; dup {
			continue
		}
		b.serialized[key] = struct{}{}
		b.local[m.ID.ID] = m.Timestamp
		if m.IsNotification {
			continue
		}
		fresh = append(fresh, m)
	}
	b.msgs = append(fresh, b.msgs...)
	return len(fresh)
}

func (b *buffer) hasLocal(id string) bool {
	_, ok := b.local[id]
	return ok
}

func (b *buffer) hasSerialized(id string) bool {
	_, ok := b.serialized[id]
	return ok
}

// sorted returns the messages ascending by timestamp. Equal timestamps keep
// source order.
func (b *buffer) sorted() []model.Message {
	out := slices.Clone(b.msgs)
	slices.SortStableFunc(out, func(x, y model.Message) int {
		return cmp.Compare(x.Timestamp, y.Timestamp)
	})
	return out
}
