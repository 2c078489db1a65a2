package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/wppweb/internal/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + group events)", result.Version)
	}
}

func TestMigrateFreshAndDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = db.Close() }()
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if !result.Changed || result.Version != 2 {
		t.Errorf("fresh migrate = %+v, want changed to version 2", result)
	}

	if _, err := db.Exec(`UPDATE schema_migrations SET dirty = 1`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); !errors.Is(err, ErrDirtySchema) {
		t.Fatalf("Migrate() on a dirty schema = %v, want ErrDirtySchema", err)
	}
}

func TestOpenExistingRequiresArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if _, err := OpenExisting(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("OpenExisting() = %v, want fs.ErrNotExist", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("OpenExisting must not create the file")
	}
}

func TestChatUpsertAndList(t *testing.T) {
	db := testDB(t)

	chat := &Chat{ID: "123@c.us", Name: "Alice", Timestamp: 1000}
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}

	chat.Name = "Alice Updated"
	chat.Timestamp = 500
	if err := db.UpsertChat(chat); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 {
		t.Fatalf("got %d chats, want 1", len(chats))
	}
	if chats[0].Name != "Alice Updated" {
		t.Errorf("name = %q, want Alice Updated", chats[0].Name)
	}
	if chats[0].Timestamp != 1000 {
		t.Errorf("timestamp = %d, want 1000 (never goes backwards)", chats[0].Timestamp)
	}
}

func TestListChatsOrder(t *testing.T) {
	db := testDB(t)

	for _, c := range []*Chat{
		{ID: "old@c.us", Timestamp: 10},
		{ID: "new@c.us", Timestamp: 30},
		{ID: "pinned@c.us", Timestamp: 20, Pinned: true},
	} {
		if err := db.UpsertChat(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.UpsertContact(&Contact{ID: "old@c.us", PushName: "Oldie"}); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats(10, 0)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, c := range chats {
		got = append(got, c.Name)
	}
	want := []string{"pinned@c.us", "new@c.us", "Oldie"}
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("names = %v, want %v", got, want)
			break
		}
	}
}

func TestGetChat(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertChat(&Chat{ID: "a@c.us", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetChat("a@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.Name != "A" {
		t.Errorf("got %v, want A", c)
	}

	c, err = db.GetChat("missing@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nil for missing chat")
	}
}

func TestMessageUpsertIdempotent(t *testing.T) {
	db := testDB(t)

	msg := &Message{ID: "false_chat@c.us_m1", ChatID: "chat@c.us", Body: "hello", Type: "chat", Ack: 2, Timestamp: 1000}
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}
	msg.Body = "hello updated"
	msg.Ack = 1
	if err := db.UpsertMessage(msg); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.ListMessages("chat@c.us", 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (idempotent upsert failed)", len(msgs))
	}
	if msgs[0].Body != "hello updated" {
		t.Errorf("body = %q, want hello updated", msgs[0].Body)
	}
	if msgs[0].Ack != 2 {
		t.Errorf("ack = %d, want 2 (never goes backwards)", msgs[0].Ack)
	}

	chat, err := db.GetChat("chat@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if chat == nil || chat.Timestamp != 1000 {
		t.Errorf("chat = %v, want a row touched at 1000", chat)
	}
}

func TestListMessagesKeyset(t *testing.T) {
	db := testDB(t)

	for i, ts := range []int64{100, 200, 300} {
		m := &Message{ID: string(rune('a' + i)), ChatID: "c@c.us", Timestamp: ts}
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}
	msgs, err := db.ListMessages("c@c.us", 300, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Timestamp != 200 || msgs[1].Timestamp != 100 {
		t.Errorf("got %v, want 200 then 100", msgs)
	}
}

func TestSetAckAndRevoke(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertMessage(&Message{ID: "m", ChatID: "c@c.us", Body: "secret", Ack: 1}); err != nil {
		t.Fatal(err)
	}

	if ok, err := db.SetAck("m", 3); err != nil || !ok {
		t.Fatalf("SetAck() = %v, %v", ok, err)
	}
	if ok, err := db.SetAck("m", 2); err != nil || !ok {
		t.Fatalf("SetAck() = %v, %v", ok, err)
	}
	if ok, err := db.SetAck("missing", 3); err != nil || ok {
		t.Errorf("SetAck(missing) = %v, %v; want false, nil", ok, err)
	}
	if ok, err := db.MarkRevoked("m"); err != nil || !ok {
		t.Fatalf("MarkRevoked() = %v, %v", ok, err)
	}

	m, err := db.GetMessage("m")
	if err != nil {
		t.Fatal(err)
	}
	if m.Ack != 3 {
		t.Errorf("ack = %d, want 3", m.Ack)
	}
	if !m.Revoked || m.Body != "" {
		t.Errorf("message = %+v, want revoked with empty body", m)
	}
}

func TestSearchMessages(t *testing.T) {
	db := testDB(t)

	for _, m := range []*Message{
		{ID: "m1", ChatID: "chat@c.us", Body: "hello world", Timestamp: 1000},
		{ID: "m2", ChatID: "chat@c.us", Body: "goodbye world", Timestamp: 2000},
		{ID: "m3", ChatID: "other@c.us", Body: "hello there", Timestamp: 3000},
		{ID: "m4", ChatID: "chat@c.us", Body: "100% sure", Timestamp: 4000},
	} {
		if err := db.UpsertMessage(m); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		query  string
		chatID string
		want   []string
	}{
		{"all chats newest first", "hello", "", []string{"m3", "m1"}},
		{"one chat", "hello", "chat@c.us", []string{"m1"}},
		{"wildcards are literal", "0%", "", []string{"m4"}},
		{"no match", "nothing", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := db.SearchMessages(tt.query, tt.chatID, 10)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(results), len(tt.want))
			}
			for i, id := range tt.want {
				if results[i].ID != id {
					t.Errorf("result %d = %q, want %q", i, results[i].ID, id)
				}
			}
		})
	}
}

func TestContact(t *testing.T) {
	db := testDB(t)

	if err := db.UpsertContact(&Contact{ID: "j@c.us", Name: "John", PushName: "Johnny"}); err != nil {
		t.Fatal(err)
	}
	// An update without names keeps the known ones.
	if err := db.BulkUpsertContacts([]Contact{{ID: "j@c.us", Number: "55"}}); err != nil {
		t.Fatal(err)
	}
	c, err := db.GetContact("j@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil || c.PushName != "Johnny" || c.Name != "John" || c.Number != "55" {
		t.Errorf("got %+v", c)
	}
}

func TestGroupEventsIgnoreReplays(t *testing.T) {
	db := testDB(t)

	e := &GroupEvent{ID: "n1", ChatID: "1-2@g.us", Type: "add", AuthorID: "1@c.us", Recipients: []string{"2@c.us", "3@c.us"}, Timestamp: 10}
	if err := db.InsertGroupEvent(e); err != nil {
		t.Fatal(err)
	}
	if err := db.InsertGroupEvent(e); err != nil {
		t.Fatal(err)
	}

	events, err := db.ListGroupEvents("1-2@g.us")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if len(events[0].Recipients) != 2 || events[0].Recipients[1] != "3@c.us" {
		t.Errorf("recipients = %v", events[0].Recipients)
	}
}

func TestCredentials(t *testing.T) {
	db := testDB(t)

	blob, err := db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if blob != nil {
		t.Errorf("LoadCredentials() on empty store = %s, want nil", blob)
	}

	for _, v := range []string{`{"v":1}`, `{"v":2}`} {
		if err := db.SaveCredentials(json.RawMessage(v)); err != nil {
			t.Fatal(err)
		}
	}
	blob, err = db.LoadCredentials()
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"v":2}` {
		t.Errorf("blob = %s, want the latest", blob)
	}

	if err := db.ClearCredentials(); err != nil {
		t.Fatal(err)
	}
	if blob, _ := db.LoadCredentials(); blob != nil {
		t.Errorf("blob after clear = %s", blob)
	}
}

func TestFromModel(t *testing.T) {
	msg, err := model.NewMessage(json.RawMessage(`{"id":{"fromMe":false,"remote":"1-2@g.us","id":"B"},"from":"1-2@g.us","to":"2@c.us","author":"7@c.us","body":"hi","type":"chat","ack":2,"t":99}`))
	if err != nil {
		t.Fatal(err)
	}
	m := MessageFromModel(msg)
	if m.ChatID != "1-2@g.us" || m.SenderID != "7@c.us" || m.Body != "hi" || m.Ack != 2 || m.Timestamp != 99 {
		t.Errorf("MessageFromModel() = %+v", m)
	}

	chat, err := model.NewChat(json.RawMessage(`{"id":"1-2@g.us","isGroup":true,"name":"Team","pin":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if c := ChatFromModel(chat); c.ID != "1-2@g.us" || !c.IsGroup {
		t.Errorf("ChatFromModel() = %+v", c)
	}
}

func TestUpsertMessagesBatch(t *testing.T) {
	db := testDB(t)

	batch := []*Message{
		{ID: "m1", ChatID: "a@c.us", Body: "one", Timestamp: 1000},
		{ID: "m2", ChatID: "a@c.us", Body: "two", Timestamp: 2000},
		{ID: "m3", ChatID: "b@c.us", Body: "three", Timestamp: 3000},
	}
	if err := db.UpsertMessages(batch); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertMessages(batch); err != nil {
		t.Fatal(err)
	}

	if n, _ := db.MessageCount(); n != 3 {
		t.Errorf("MessageCount() = %d, want 3", n)
	}
	if n, _ := db.ChatCount(); n != 2 {
		t.Errorf("ChatCount() = %d, want 2", n)
	}
	a, err := db.GetChat("a@c.us")
	if err != nil {
		t.Fatal(err)
	}
	if a.Timestamp != 2000 {
		t.Errorf("chat timestamp = %d, want 2000", a.Timestamp)
	}
}

func TestRevokedBodyStaysEmpty(t *testing.T) {
	db := testDB(t)

	m := &Message{ID: "m", ChatID: "c@c.us", Body: "secret"}
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if _, err := db.MarkRevoked("m"); err != nil {
		t.Fatal(err)
	}
	// A late replay of the original must not resurrect the body.
	if err := db.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetMessage("m")
	if err != nil {
		t.Fatal(err)
	}
	if got.Body != "" || !got.Revoked {
		t.Errorf("got %+v, want revoked with empty body", got)
	}
}
