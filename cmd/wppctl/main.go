// Command wppctl reads a session's archive: chats, messages, contacts and group
// events as wppd stored them. It never talks to the automation host and can run
// while wppd does.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
