package history

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/fakehost"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/wid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chatID = wid.MustParse("1@c.us")

// msg renders a raw message; a "!" prefix on id marks a notification.
func msg(id string, t int64) string {
	notification := strings.HasPrefix(id, "!")
	id = strings.TrimPrefix(id, "!")
	return fmt.Sprintf(`{"id":"false_1@c.us_%s","from":"1@c.us","to":"me@c.us","t":%d,"body":%q,"isNotification":%t}`,
		id, t, id, notification)
}

func page(msgs ...string) string {
	return "[" + strings.Join(msgs, ",") + "]"
}

func newLoader(seed string, pages ...any) (*Loader, *fakehost.Host) {
	fh := fakehost.New().
		Return(host.QueryChatLoaded, seed).
		Sequence(host.QueryChatLoadEarlier, pages...)
	return NewLoader(fh, 0, metrics.New(), nil), fh
}

func bodies[T interface{ Body() string }](msgs []T) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Body()
	}
	return out
}

func TestFetchStopsOnceLimitReached(t *testing.T) {
	l, fh := newLoader(
		page(msg("D", 40), msg("E", 50)),
		page(msg("B", 20), msg("C", 30)),
		page(msg("A", 10)),
	)

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E"}, bodies(got), "trimmed from the front, earliest first")
	assert.Equal(t, 1, fh.Count(host.QueryChatLoadEarlier))
}

func TestFetchExhaustedSource(t *testing.T) {
	l, fh := newLoader(page(msg("B", 20)), page(msg("A", 10)))

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, bodies(got))
	assert.Equal(t, 2, fh.Count(host.QueryChatLoadEarlier), "the null page ends paging")
}

func TestFetchDedupsAndDropsNotifications(t *testing.T) {
	l, _ := newLoader(
		page(msg("B", 20), msg("!N", 25), msg("C", 30)),
		page(msg("A", 10), msg("B", 20)),
	)

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: Unlimited})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, bodies(got))
}

func TestFetchStableForEqualTimestamps(t *testing.T) {
	l, _ := newLoader(
		page(msg("X", 5), msg("Y", 5)),
		page(msg("W", 5)),
	)

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: Unlimited})
	require.NoError(t, err)
	assert.Equal(t, []string{"W", "X", "Y"}, bodies(got), "ties keep source order")
}

func TestFetchDefaultLimit(t *testing.T) {
	seed := make([]string, 0, 60)
	for i := range 60 {
		seed = append(seed, msg(fmt.Sprintf("M%02d", i), int64(i)))
	}
	l, fh := newLoader(page(seed...))

	got, err := l.FetchMessages(context.Background(), chatID, Options{})
	require.NoError(t, err)
	require.Len(t, got, DefaultLimit)
	assert.Equal(t, "M10", got[0].Body())
	assert.Equal(t, "M59", got[len(got)-1].Body())
	assert.Zero(t, fh.Count(host.QueryChatLoadEarlier))
}

func TestFetchConfiguredDefaultLimit(t *testing.T) {
	fh := fakehost.New().
		Return(host.QueryChatLoaded, page(msg("A", 1), msg("B", 2), msg("C", 3))).
		Sequence(host.QueryChatLoadEarlier)
	l := NewLoader(fh, 2, nil, nil)

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: -1})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, bodies(got))
}

func TestFetchEmptyPageEndsPaging(t *testing.T) {
	l, fh := newLoader(page(msg("B", 20)), page(), page(msg("A", 10)))

	got, err := l.FetchMessages(context.Background(), chatID, Options{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, bodies(got))
	assert.Equal(t, 1, fh.Count(host.QueryChatLoadEarlier))
}

func TestFetchUnknownChat(t *testing.T) {
	fh := fakehost.New().Return(host.QueryChatLoaded, nil)
	l := NewLoader(fh, 0, nil, nil)

	_, err := l.FetchMessages(context.Background(), chatID, Options{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFetchSessionUnavailable(t *testing.T) {
	l, fh := newLoader(page(msg("B", 20)), page(msg("A", 10)))
	fh.On(host.QueryChatLoadEarlier, func(fakehost.Call) (any, error) {
		return nil, fmt.Errorf("page closed: %w", errs.ErrSessionUnavailable)
	})

	_, err := l.FetchMessages(context.Background(), chatID, Options{Limit: 5})
	assert.ErrorIs(t, err, errs.ErrSessionUnavailable)
}

func TestFetchUntilLandmarkInSeed(t *testing.T) {
	l, fh := newLoader(page(msg("A", 10), msg("B", 20), msg("C", 30)), page(msg("Z", 1)))
	landmark := wid.MessageID{Remote: chatID, ID: "B"}

	got, err := l.FetchMessagesUntil(context.Background(), chatID, landmark)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, bodies(got))
	assert.Zero(t, fh.Count(host.QueryChatLoadEarlier), "no paging when the landmark is already loaded")
}

func TestFetchUntilPagesToLandmark(t *testing.T) {
	l, fh := newLoader(
		page(msg("E", 50)),
		page(msg("C", 30), msg("D", 40)),
		page(msg("A", 10), msg("B", 20)),
		page(msg("Z", 1)),
	)
	landmark := wid.MessageID{Remote: chatID, ID: "B"}

	got, err := l.FetchMessagesUntil(context.Background(), chatID, landmark)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "E"}, bodies(got), "the landmark is the earliest element")
	assert.Equal(t, 2, fh.Count(host.QueryChatLoadEarlier))
}

func TestFetchUntilMissingLandmark(t *testing.T) {
	l, fh := newLoader(page(msg("B", 20)), page(msg("A", 10)))

	got, err := l.FetchMessagesUntil(context.Background(), chatID, wid.MessageID{Remote: chatID, ID: "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, bodies(got))
	assert.Equal(t, 2, fh.Count(host.QueryChatLoadEarlier))
}

func TestFetchUntilNotificationLandmark(t *testing.T) {
	l, _ := newLoader(
		page(msg("C", 30), msg("D", 40)),
		page(msg("A", 10), msg("!N", 20), msg("B", 25)),
	)
	landmark := wid.MessageID{Remote: chatID, ID: "N"}

	got, err := l.FetchMessagesUntil(context.Background(), chatID, landmark)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D"}, bodies(got), "nothing earlier than the notification")
}

func TestLoadMessage(t *testing.T) {
	target, err := wid.ParseMessageID("false_1@c.us_A")
	require.NoError(t, err)

	l, fh := newLoader(page(msg("C", 30)), page(msg("B", 20)), page(msg("A", 10)))
	found, err := l.LoadMessage(context.Background(), chatID, target)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, fh.Count(host.QueryChatLoadEarlier))

	l, _ = newLoader(page(msg("C", 30)))
	found, err = l.LoadMessage(context.Background(), chatID, target)
	require.NoError(t, err)
	assert.False(t, found)
}
