package wa

import (
	"context"
	"testing"
	"time"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/fakehost"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatToggles(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.On(host.QueryChatArchive, func(call fakehost.Call) (any, error) {
		var on bool
		err := call.Arg(1, &on)
		return on, err
	})
	ctx := context.Background()
	id := wid.MustParse("1@c.us")

	archived, err := c.ArchiveChat(ctx, id)
	require.NoError(t, err)
	assert.True(t, archived)

	archived, err = c.UnarchiveChat(ctx, id)
	require.NoError(t, err)
	assert.False(t, archived)
	assert.Zero(t, fh.Count(host.QueryChatPin), "archive does not touch pinning")
}

func TestPinRefusedAtLimit(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatPin, false)

	pinned, err := c.PinChat(context.Background(), wid.MustParse("1@c.us"))
	require.NoError(t, err)
	assert.False(t, pinned)
}

func TestMuteChat(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatMute, nil)
	until := time.Unix(1700000000, 0)

	require.NoError(t, c.MuteChat(context.Background(), wid.MustParse("1@c.us"), until))
	var ts int64
	require.NoError(t, fh.Calls(host.QueryChatMute)[0].Arg(2, &ts))
	assert.Equal(t, until.Unix(), ts)
}

func TestChatStates(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryChatState, nil)
	ctx := context.Background()
	id := wid.MustParse("1@c.us")

	require.NoError(t, c.SendStateTyping(ctx, id))
	require.NoError(t, c.SendStateRecording(ctx, id))
	require.NoError(t, c.ClearState(ctx, id))

	var got []string
	for _, call := range fh.Calls(host.QueryChatState) {
		var s string
		require.NoError(t, call.Arg(1, &s))
		got = append(got, s)
	}
	assert.Equal(t, []string{"typing", "recording", "stop"}, got)
}

func TestDeleteMessageOnlyRevokesOwn(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryMessageDelete, nil)
	ctx := context.Background()

	mine, err := model.NewMessage([]byte(`{"id":"true_1@c.us_A","from":"me@c.us","to":"1@c.us"}`))
	require.NoError(t, err)
	theirs, err := model.NewMessage([]byte(`{"id":"false_1@c.us_B","from":"1@c.us","to":"me@c.us"}`))
	require.NoError(t, err)

	require.NoError(t, c.DeleteMessage(ctx, mine, true))
	require.NoError(t, c.DeleteMessage(ctx, theirs, true))

	calls := fh.Calls(host.QueryMessageDelete)
	require.Len(t, calls, 2)
	var everyone bool
	require.NoError(t, calls[0].Arg(1, &everyone))
	assert.True(t, everyone)
	require.NoError(t, calls[1].Arg(1, &everyone))
	assert.False(t, everyone)
}

func TestMessageInfo(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Sequence(host.QueryMessageInfo,
		`{"delivery":[{"id":"1@c.us","t":10}],"deliveryRemaining":0,"read":[],"readRemaining":1,"played":[],"playedRemaining":1}`,
		nil,
	)
	m, err := model.NewMessage([]byte(sentMessage))
	require.NoError(t, err)
	ctx := context.Background()

	info, err := c.MessageInfo(ctx, m)
	require.NoError(t, err)
	require.NotNil(t, info)
	require.Len(t, info.Delivery, 1)
	assert.Equal(t, "1@c.us", info.Delivery[0].ID.String())
	assert.Equal(t, 1, info.ReadRemaining)

	info, err = c.MessageInfo(ctx, m)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestDownloadMediaWithoutMedia(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	m, err := model.NewMessage([]byte(sentMessage))
	require.NoError(t, err)

	payload, err := c.DownloadMedia(context.Background(), m)
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.Zero(t, fh.Count(""))
}

func TestInterfaceCommands(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	fh.Return(host.QueryInterface, nil)
	ctx := context.Background()

	ui := c.Interface()
	require.NoError(t, ui.OpenChatWindow(ctx, wid.MustParse("1@c.us")))
	require.NoError(t, ui.CloseRightDrawer(ctx))

	calls := fh.Calls(host.QueryInterface)
	require.Len(t, calls, 2)
	var name, arg string
	require.NoError(t, calls[0].Arg(0, &name))
	require.NoError(t, calls[0].Arg(1, &arg))
	assert.Equal(t, "open_chat_window", name)
	assert.Equal(t, "1@c.us", arg)
	require.NoError(t, calls[1].Arg(0, &name))
	assert.Equal(t, "close_right_drawer", name)
}

func TestLogoutForgetsSession(t *testing.T) {
	c, fh, _ := newClient(t, Options{Session: []byte(`{"v":1}`)})
	fh.Return(host.QueryLogout, nil)

	require.NoError(t, c.Logout(context.Background()))
	assert.Nil(t, c.Session())
}

func TestRestoreSession(t *testing.T) {
	c, fh, _ := newClient(t, Options{})
	ok, err := c.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, fh.Count(""), "nothing to restore means no call")

	c, fh, _ = newClient(t, Options{Session: []byte(`{"WABrowserId":"x"}`)})
	fh.Return(host.QueryRestoreSession, true)
	ok, err = c.RestoreSession(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	calls := fh.Calls(host.QueryRestoreSession)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"WABrowserId":"x"}`, string(calls[0].Args[0]))
}
