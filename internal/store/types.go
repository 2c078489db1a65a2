package store

// Chat is an archived chat.
type Chat struct {
	ID          string
	Name        string
	IsGroup     bool
	Archived    bool
	Pinned      bool
	UnreadCount int
	Timestamp   int64
}

// Contact is an archived contact.
type Contact struct {
	ID         string
	Number     string
	Name       string
	PushName   string
	IsBusiness bool
}

// Message is an archived message, keyed by its serialized id.
type Message struct {
	ID        string
	ChatID    string
	SenderID  string
	Type      string
	Body      string
	FromMe    bool
	HasMedia  bool
	Ack       int
	Revoked   bool
	Timestamp int64
}

// GroupEvent is an archived group notification.
type GroupEvent struct {
	ID         string
	ChatID     string
	Type       string
	AuthorID   string
	Recipients []string
	Body       string
	Timestamp  int64
}
