package fakehost

import (
	"context"
	"testing"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceEndsWithNull(t *testing.T) {
	h := New().Sequence(host.QueryChatLoadEarlier, []int{1}, `[2]`)
	ctx := context.Background()

	for _, want := range []string{`[1]`, `[2]`, `null`} {
		got, err := h.Evaluate(ctx, host.QueryChatLoadEarlier, "1@c.us")
		require.NoError(t, err)
		assert.JSONEq(t, want, string(got))
	}
	assert.Equal(t, 3, h.Count(host.QueryChatLoadEarlier))
	assert.Equal(t, 3, h.Count(""))
}

func TestUnscriptedQueryFails(t *testing.T) {
	h := New()
	_, err := h.Evaluate(context.Background(), host.QueryChatGet, "1@c.us")
	require.Error(t, err)
	assert.Equal(t, 1, h.Count(host.QueryChatGet), "failed calls are still recorded")
}

func TestArgsAreRecorded(t *testing.T) {
	h := New().Return(host.QueryMediaResolve, true)
	_, err := h.Evaluate(context.Background(), host.QueryMediaResolve, "msg-1", 2)
	require.NoError(t, err)

	calls := h.Calls(host.QueryMediaResolve)
	require.Len(t, calls, 1)
	var id string
	var retries int
	require.NoError(t, calls[0].Arg(0, &id))
	require.NoError(t, calls[0].Arg(1, &retries))
	assert.Equal(t, "msg-1", id)
	assert.Equal(t, 2, retries)
	assert.Error(t, calls[0].Arg(2, &id))
}

func TestCloseMakesSessionUnavailable(t *testing.T) {
	h := New().Return(host.QueryState, `"CONNECTED"`)
	h.Emit(host.Event{Type: host.EventReady})
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err := h.Evaluate(context.Background(), host.QueryState)
	assert.ErrorIs(t, err, errs.ErrSessionUnavailable)

	ev, ok := <-h.Events()
	assert.True(t, ok, "buffered events survive close")
	assert.Equal(t, host.EventReady, ev.Type)
	_, ok = <-h.Events()
	assert.False(t, ok)

	h.Emit(host.Event{Type: host.EventReady})
}

func TestIsNull(t *testing.T) {
	assert.True(t, host.IsNull(nil))
	assert.True(t, host.IsNull([]byte(" null\n")))
	assert.False(t, host.IsNull([]byte(`{}`)))
	assert.False(t, host.IsNull([]byte(`false`)))
}
