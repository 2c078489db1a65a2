package daemon

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/wppweb/internal/bridge"
	"github.com/matheus3301/wppweb/internal/config"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/fakehost"
	"github.com/matheus3301/wppweb/internal/session"
	"github.com/matheus3301/wppweb/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const incoming = `{"id":"false_1@c.us_M1","from":"1@c.us","to":"me@c.us","body":"hello","type":"chat","ack":1,"t":1000}`

type harness struct {
	app  *fx.App
	host *fakehost.Host
	db   *store.DB
	qr   *bytes.Buffer
}

func newHarness(t *testing.T, cfg *config.Config, fh *fakehost.Host) *harness {
	t.Helper()
	t.Setenv(session.HomeEnv, t.TempDir())
	return startApp(t, cfg, fh)
}

// startApp runs the daemon under the current WPPWEB_HOME.
func startApp(t *testing.T, cfg *config.Config, fh *fakehost.Host) *harness {
	t.Helper()
	h := &harness{host: fh, qr: &bytes.Buffer{}}
	h.app = fx.New(
		Module(Params{
			SessionName: "test",
			Config:      cfg,
			Host:        fh,
			Logger:      zap.NewNop(),
			QROut:       h.qr,
		}),
		fx.NopLogger,
		fx.Populate(&h.db),
	)
	if err := h.app.Err(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.app.Stop(ctx); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDaemonArchivesSession(t *testing.T) {
	h := newHarness(t, config.Default(), fakehost.New())

	h.host.Emit(host.Event{Type: host.EventQR, Payload: []byte(`"pairing-code"`)})
	h.host.Emit(host.Event{Type: host.EventAuthenticated, Payload: []byte(`{"token":"abc"}`)})
	h.host.Emit(host.Event{Type: host.EventReady})
	h.host.EmitRaw(host.EntityMessage, bridge.ChangeMessage, incoming)

	waitFor(t, "archived message", func() bool {
		m, err := h.db.GetMessage("false_1@c.us_M1")
		return err == nil && m != nil
	})
	waitFor(t, "stored credentials", func() bool {
		creds, err := h.db.LoadCredentials()
		return err == nil && creds != nil
	})

	chat, err := h.db.GetChat("1@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if chat == nil || chat.Timestamp != 1000 {
		t.Fatalf("chat = %+v, want touched at 1000", chat)
	}
	creds, err := h.db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if string(creds) != `{"token":"abc"}` {
		t.Fatalf("credentials = %s", creds)
	}

	h.stop(t)
	if h.qr.Len() == 0 {
		t.Fatal("expected the pairing code to be rendered")
	}
}

func TestDaemonBuffersEarlyChangesWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Bridge.BufferOutsideReady = true
	h := newHarness(t, cfg, fakehost.New())
	defer h.stop(t)

	h.host.EmitRaw(host.EntityMessage, bridge.ChangeMessage, incoming)
	h.host.Emit(host.Event{Type: host.EventReady})

	waitFor(t, "archived message", func() bool {
		m, err := h.db.GetMessage("false_1@c.us_M1")
		return err == nil && m != nil
	})
}

func TestDaemonClearsCredentialsOnLogout(t *testing.T) {
	h := newHarness(t, config.Default(), fakehost.New())
	defer h.stop(t)

	h.host.Emit(host.Event{Type: host.EventAuthenticated, Payload: []byte(`{"token":"abc"}`)})
	h.host.Emit(host.Event{Type: host.EventReady})
	waitFor(t, "stored credentials", func() bool {
		creds, err := h.db.LoadCredentials()
		return err == nil && creds != nil
	})

	h.host.Emit(host.Event{Type: host.EventDisconnected, Reason: "LOGOUT"})
	waitFor(t, "cleared credentials", func() bool {
		creds, err := h.db.LoadCredentials()
		return err == nil && creds == nil
	})
}

func TestDaemonRestoresStoredCredentials(t *testing.T) {
	t.Setenv(session.HomeEnv, t.TempDir())
	if err := session.EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(session.ArchiveDBPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredentials([]byte(`{"token":"kept"}`)); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	fh := fakehost.New().Return(host.QueryRestoreSession, true)
	h := startApp(t, config.Default(), fh)
	defer h.stop(t)

	calls := fh.Calls(host.QueryRestoreSession)
	if len(calls) != 1 {
		t.Fatalf("got %d restore calls, want 1", len(calls))
	}
	if string(calls[0].Args[0]) != `{"token":"kept"}` {
		t.Fatalf("restored blob = %s", calls[0].Args[0])
	}
}

func TestDaemonBackfillsOnReady(t *testing.T) {
	cfg := config.Default()
	cfg.History.BackfillLimit = 10

	fh := fakehost.New().
		Return(host.QueryChatList, `[{"id":"1@c.us","isGroup":false,"formattedTitle":"Alice"}]`).
		Return(host.QueryChatLoaded, `[
			{"id":"false_1@c.us_H1","from":"1@c.us","to":"me@c.us","body":"one","t":10},
			{"id":"false_1@c.us_H2","from":"1@c.us","to":"me@c.us","body":"two","t":20}
		]`).
		Return(host.QueryChatLoadEarlier, nil)

	h := newHarness(t, cfg, fh)
	defer h.stop(t)

	h.host.Emit(host.Event{Type: host.EventReady})

	waitFor(t, "backfilled history", func() bool {
		n, err := h.db.MessageCount()
		return err == nil && n == 2
	})
	msgs, err := h.db.ListMessages("1@c.us", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}

func TestDaemonWithoutBackfillIssuesNoQueries(t *testing.T) {
	h := newHarness(t, config.Default(), fakehost.New())

	h.host.Emit(host.Event{Type: host.EventReady})
	h.stop(t)

	if n := h.host.Count(""); n != 0 {
		t.Fatalf("got %d host queries, want none", n)
	}
}

func TestDaemonRefusesSecondInstance(t *testing.T) {
	h := newHarness(t, config.Default(), fakehost.New())
	defer h.stop(t)

	// Same WPPWEB_HOME as the running daemon.
	app := fx.New(
		Module(Params{
			SessionName: "test",
			Config:      config.Default(),
			Host:        fakehost.New(),
			Logger:      zap.NewNop(),
			QROut:       io.Discard,
		}),
		fx.NopLogger,
	)
	if app.Err() == nil {
		t.Fatal("expected the second daemon to fail on the session lock")
	}
}

func TestDaemonServesMetrics(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Listen = "127.0.0.1:0"

	t.Setenv(session.HomeEnv, t.TempDir())
	var srv *MetricsServer
	app := fx.New(
		Module(Params{
			SessionName: "test",
			Config:      cfg,
			Host:        fakehost.New(),
			Logger:      zap.NewNop(),
			QROut:       io.Discard,
		}),
		fx.NopLogger,
		fx.Populate(&srv),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = app.Stop(ctx) }()

	if srv == nil {
		t.Fatal("expected a metrics server")
	}
	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "wppweb_media_resolve_attempts_total") ||
		!strings.Contains(string(body), "wppweb_bus_dropped_total") {
		t.Fatalf("unexpected metrics body:\n%s", body)
	}
}

func TestNilMetricsServer(t *testing.T) {
	srv, err := NewMetricsServer("", nil, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if srv != nil {
		t.Fatal("expected no server for an empty address")
	}
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	srv.Stop(context.Background())
	if srv.Addr() != "" {
		t.Fatal("nil server has no address")
	}
}
