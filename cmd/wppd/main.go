package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/wppweb/internal/daemon"
	"github.com/matheus3301/wppweb/internal/session"
	"go.uber.org/fx"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	hostFlag := flag.String("host", "", "automation host gRPC target (overrides config)")
	debugFlag := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	sessionName, err := session.Resolve(*sessionFlag)
	if err == nil {
		err = session.ValidateName(sessionName)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			SessionName: sessionName,
			HostAddress: *hostFlag,
			Debug:       *debugFlag,
		}),
		fx.NopLogger,
	)

	app.Run()
}
