// Command wppstub serves a scripted automation host on a session's socket so
// wppd can be run end to end without a browser session. It pairs immediately,
// reports an empty account and answers a credential restore with success.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/host/fakehost"
	"github.com/matheus3301/wppweb/internal/host/grpchost"
	"github.com/matheus3301/wppweb/internal/session"
	"go.uber.org/zap"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	flag.Parse()

	sessionName, err := session.Resolve(*sessionFlag)
	if err == nil {
		err = session.ValidateName(sessionName)
	}
	if err == nil {
		err = session.EnsureDir(sessionName)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	fh := fakehost.New().
		Return(host.QueryState, `"CONNECTED"`).
		Return(host.QueryRestoreSession, true).
		Return(host.QueryChatList, `[]`).
		Return(host.QueryContactList, `[]`).
		Return(host.QueryChatLoaded, `[]`).
		Return(host.QueryChatLoadEarlier, nil)

	srv, err := grpchost.NewServer(fh, session.HostSocketPath(sessionName), logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("stub host stopped", zap.Error(err))
		}
	}()
	logger.Info("stub automation host ready", zap.String("target", srv.Target()))

	// Held until wppd opens the event stream.
	fh.Emit(host.Event{Type: host.EventQR, Payload: []byte(`"wppstub-pairing-code"`)})
	fh.Emit(host.Event{Type: host.EventAuthenticated, Payload: []byte(`{"stub":true}`)})
	fh.Emit(host.Event{Type: host.EventReady})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	srv.Stop(context.Background())
	_ = fh.Close()
}
