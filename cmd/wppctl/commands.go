package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/matheus3301/wppweb/internal/session"
	"github.com/matheus3301/wppweb/internal/store"
)

type cli struct {
	db      *store.DB
	jsonOut bool
	stdout  io.Writer
}

// errUsage is reported as an exit status of 2 after the usage text.
var errUsage = errors.New("usage")

func run(args []string, stdout, stderr io.Writer) int {
	fl := flag.NewFlagSet("wppctl", flag.ContinueOnError)
	fl.SetOutput(stderr)
	sessionFlag := fl.String("session", "", "session name (overrides config default)")
	jsonFlag := fl.Bool("json", false, "output in JSON format")
	fl.Usage = func() { printUsage(stderr) }
	if err := fl.Parse(args); err != nil {
		return 2
	}
	if fl.NArg() == 0 {
		printUsage(stderr)
		return 2
	}

	sessionName, err := session.Resolve(*sessionFlag)
	if err == nil {
		err = session.ValidateName(sessionName)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	db, err := store.OpenExisting(session.ArchiveDBPath(sessionName))
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "error: session %q has no archive yet; run wppd first\n", sessionName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	c := &cli{db: db, jsonOut: *jsonFlag, stdout: stdout}
	cmd, rest := fl.Arg(0), fl.Args()[1:]
	switch cmd {
	case "status":
		err = c.status(sessionName)
	case "chats":
		err = c.chats(rest)
	case "messages":
		err = c.messages(rest)
	case "message":
		err = c.message(rest)
	case "search":
		err = c.search(rest)
	case "contact":
		err = c.contact(rest)
	case "events":
		err = c.events(rest)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
		printUsage(stderr)
		return 2
	}
	if errors.Is(err, errUsage) {
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: wppctl [--session <name>] [--json] <command>")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  status                                  Archive counts and credential state")
	fmt.Fprintln(w, "  chats [--limit N] [--offset N]          List chats, pinned first")
	fmt.Fprintln(w, "  messages <chat> [--before TS] [--limit N]")
	fmt.Fprintln(w, "                                          List a chat's messages, newest first")
	fmt.Fprintln(w, "  message <id>                            Show one message")
	fmt.Fprintln(w, "  search <text> [--chat ID] [--limit N]   Search message bodies")
	fmt.Fprintln(w, "  contact <id>                            Show one contact")
	fmt.Fprintln(w, "  events <group>                          List a group's notifications")
}

func (c *cli) status(sessionName string) error {
	chats, err := c.db.ChatCount()
	if err != nil {
		return err
	}
	msgs, err := c.db.MessageCount()
	if err != nil {
		return err
	}
	creds, err := c.db.LoadCredentials()
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(map[string]any{
			"session":     sessionName,
			"chats":       chats,
			"messages":    msgs,
			"credentials": creds != nil,
		})
	}
	fmt.Fprintf(c.stdout, "Session:     %s\n", sessionName)
	fmt.Fprintf(c.stdout, "Chats:       %d\n", chats)
	fmt.Fprintf(c.stdout, "Messages:    %d\n", msgs)
	fmt.Fprintf(c.stdout, "Credentials: %s\n", yesNo(creds != nil))
	return nil
}

func (c *cli) chats(args []string) error {
	fl := subcommand("chats")
	limit := fl.Int("limit", 50, "maximum chats")
	offset := fl.Int("offset", 0, "chats to skip")
	if err := fl.Parse(args); err != nil || fl.NArg() != 0 {
		return errUsage
	}
	chats, err := c.db.ListChats(*limit, *offset)
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(chats)
	}
	for _, ch := range chats {
		flags := ""
		if ch.Pinned {
			flags += "P"
		}
		if ch.Archived {
			flags += "A"
		}
		if ch.IsGroup {
			flags += "G"
		}
		fmt.Fprintf(c.stdout, "%-3s %-28s %-30s %s\n", flags, ch.ID, ch.Name, when(ch.Timestamp))
	}
	return nil
}

func (c *cli) messages(args []string) error {
	chatID, args := positional(args)
	fl := subcommand("messages")
	before := fl.Int64("before", 0, "only messages older than this unix time")
	limit := fl.Int("limit", 50, "maximum messages")
	if err := fl.Parse(args); err != nil || chatID == "" || fl.NArg() != 0 {
		return errUsage
	}
	msgs, err := c.db.ListMessages(chatID, *before, *limit)
	if err != nil {
		return err
	}
	return c.printMessages(msgs)
}

func (c *cli) message(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	m, err := c.db.GetMessage(args[0])
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("message %s is not archived", args[0])
	}
	return c.printMessages([]store.Message{*m})
}

func (c *cli) search(args []string) error {
	query, args := positional(args)
	fl := subcommand("search")
	chatID := fl.String("chat", "", "restrict to one chat")
	limit := fl.Int("limit", 50, "maximum results")
	if err := fl.Parse(args); err != nil || query == "" || fl.NArg() != 0 {
		return errUsage
	}
	msgs, err := c.db.SearchMessages(query, *chatID, *limit)
	if err != nil {
		return err
	}
	return c.printMessages(msgs)
}

func (c *cli) contact(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	ct, err := c.db.GetContact(args[0])
	if err != nil {
		return err
	}
	if ct == nil {
		return fmt.Errorf("contact %s is not archived", args[0])
	}
	if c.jsonOut {
		return c.outputJSON(ct)
	}
	fmt.Fprintf(c.stdout, "ID:        %s\n", ct.ID)
	fmt.Fprintf(c.stdout, "Number:    %s\n", ct.Number)
	fmt.Fprintf(c.stdout, "Name:      %s\n", ct.Name)
	fmt.Fprintf(c.stdout, "Push name: %s\n", ct.PushName)
	fmt.Fprintf(c.stdout, "Business:  %s\n", yesNo(ct.IsBusiness))
	return nil
}

func (c *cli) events(args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	events, err := c.db.ListGroupEvents(args[0])
	if err != nil {
		return err
	}
	if c.jsonOut {
		return c.outputJSON(events)
	}
	for _, e := range events {
		fmt.Fprintf(c.stdout, "%s %-10s %-20s %s\n", when(e.Timestamp), e.Type, e.AuthorID, strings.Join(e.Recipients, ","))
	}
	return nil
}

func (c *cli) printMessages(msgs []store.Message) error {
	if c.jsonOut {
		return c.outputJSON(msgs)
	}
	for _, m := range msgs {
		sender := m.SenderID
		if m.FromMe {
			sender = "me"
		}
		body := m.Body
		switch {
		case m.Revoked:
			body = "(deleted)"
		case m.HasMedia && body == "":
			body = "(" + m.Type + ")"
		}
		fmt.Fprintf(c.stdout, "%s %-20s %s\n", when(m.Timestamp), sender, body)
	}
	return nil
}

func (c *cli) outputJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func subcommand(name string) *flag.FlagSet {
	fl := flag.NewFlagSet(name, flag.ContinueOnError)
	fl.SetOutput(io.Discard)
	return fl
}

// positional splits off a leading non-flag argument so that flags may follow it.
func positional(args []string) (string, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", args
	}
	return args[0], args[1:]
}

func when(ts int64) string {
	if ts == 0 {
		return "-                  "
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
