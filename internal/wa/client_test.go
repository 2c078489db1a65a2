package wa

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/matheus3301/wppweb/internal/bridge"
	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/fakehost"
	"github.com/matheus3301/wppweb/internal/status"
	"github.com/matheus3301/wppweb/internal/wid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	privateChat = `{"id":"1@c.us","isGroup":false,"formattedTitle":"Alice"}`
	groupChat   = `{"id":"1-2@g.us","isGroup":true,"formattedTitle":"Team","groupMetadata":{"desc":"d"}}`
)

func newClient(t *testing.T, opts Options) (*Client, *fakehost.Host, *bus.Bus) {
	t.Helper()
	fh := fakehost.New()
	b := bus.New()
	c := New(fh, b, status.NewMachine(b), nil, opts)
	t.Cleanup(c.Close)
	return c, fh, b
}

func TestGetChatByID(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatGet, privateChat)

	chat, err := c.GetChatByID(context.Background(), wid.MustParse("1@c.us"))
	require.NoError(t, err)
	assert.Equal(t, "Alice", chat.Name)
	assert.False(t, chat.IsGroup())

	var arg string
	require.NoError(t, fh.Calls(host.QueryChatGet)[0].Arg(0, &arg))
	assert.Equal(t, "1@c.us", arg)
}

func TestAccessorsReportNotFound(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatGet, nil).
		Return(host.QueryContactGet, nil).
		Return(host.QueryMessageGet, nil).
		Return(host.QueryLabelGet, nil).
		Return(host.QueryBatteryStatus, nil)
	ctx := context.Background()

	_, err := c.GetChatByID(ctx, wid.MustParse("9@c.us"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.GetContactByID(ctx, wid.MustParse("9@c.us"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.GetMessageByID(ctx, wid.MessageID{FromMe: true, Remote: wid.MustParse("9@c.us"), ID: "X"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.GetLabelByID(ctx, "7")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = c.BatteryStatus(ctx)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListSkipsMalformedEntries(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatList, `[`+privateChat+`,{"formattedTitle":"no id"},`+groupChat+`]`)

	chats, err := c.GetChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "Alice", chats[0].Name)
	assert.True(t, chats[1].IsGroup())
}

func TestListNullIsEmpty(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryLabelList, nil)

	labels, err := c.GetLabels(context.Background())
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestListRejectsNonArray(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryContactList, `{"not":"a list"}`)

	_, err := c.GetContacts(context.Background())
	assert.ErrorIs(t, err, errs.ErrMalformedPayload)
}

func TestHostErrorsPropagate(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.On(host.QueryChatList, func(fakehost.Call) (any, error) {
		return nil, errs.ErrSessionUnavailable
	})

	_, err := c.GetChats(context.Background())
	assert.True(t, errors.Is(err, errs.ErrSessionUnavailable))
}

func TestStateAndVersion(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryState, `"CONNECTED"`).Return(host.QueryVersion, `"2.3000.1"`)
	ctx := context.Background()

	st, err := c.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateConnected, st)

	v, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.3000.1", v)
}

func TestGetNumberID(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Sequence(host.QueryNumberID, `{"server":"c.us","user":"5511"}`, nil)
	ctx := context.Background()

	id, ok, err := c.GetNumberID(ctx, "5511")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "5511@c.us", id.String())

	_, ok, err = c.GetNumberID(ctx, "000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSearchMessagesArgs(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QuerySearchMessages, `[]`)

	_, err := c.SearchMessages(context.Background(), "hello", SearchOptions{ChatID: wid.MustParse("1@c.us"), Limit: 5})
	require.NoError(t, err)

	var args map[string]any
	require.NoError(t, fh.Calls(host.QuerySearchMessages)[0].Arg(1, &args))
	assert.Equal(t, map[string]any{"chatId": "1@c.us", "limit": float64(5)}, args)
}

func TestSessionTracksAuthentication(t *testing.T) {
	c, _, b := newClient(t, Options{Session: json.RawMessage(`{"v":1}`)})
	assert.JSONEq(t, `{"v":1}`, string(c.Session()))

	b.Publish(bus.Event{Kind: bus.KindAuthenticated, Payload: bridge.Authenticated{Session: json.RawMessage(`{"v":2}`)}})

	assert.Eventually(t, func() bool {
		return string(c.Session()) == `{"v":2}`
	}, time.Second, 5*time.Millisecond)
}

func TestStatusFollowsMachine(t *testing.T) {
	c, _, _ := newClient(t, Options{})
	assert.Equal(t, status.Initializing, c.Status())
	require.NoError(t, c.machine.Transition(status.Ready))
	assert.Equal(t, status.Ready, c.Status())
}
