package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// Message is a single chat message. Its chat of record and its media
// availability are derived, see ChatID and HasMedia.
type Message struct {
	ID              wid.MessageID
	Ack             Ack
	Type            MessageType
	Timestamp       int64
	From            wid.ID
	To              wid.ID
	Author          wid.ID
	MediaKey        string
	DirectPath      string
	IsForwarded     bool
	ForwardingScore int
	IsStatus        bool
	IsStarred       bool
	Broadcast       bool
	HasQuotedMsg    bool
	IsNotification  bool
	Location        *Location
	VCards          []string
	InviteV4        *InviteV4
	MentionedIDs    []wid.ID
	Links           []Link
	OrderID         string
	Title           string
	Description     string

	BusinessOwnerJID string
	ProductID        string

	Buttons *ReplyButtons

	caption string
	text    string
	raw     fields
}

// Link is a URL found in a message body.
type Link struct {
	Link         string `json:"link"`
	IsSuspicious bool   `json:"isSuspicious"`
}

// InviteV4 is the payload of a group invite message.
type InviteV4 struct {
	InviteCode    string
	InviteCodeExp int64
	GroupID       string
	GroupName     string
	FromID        string
	ToID          string
}

// ReplyButtons holds the dynamic reply buttons of an interactive message.
type ReplyButtons struct {
	Footer   string
	Question string
	Title    string
	Dynamic  json.RawMessage
	Reply    json.RawMessage
}

// NewMessage builds a Message from a raw payload. The id must carry both a local
// id and a remote chat.
func NewMessage(raw json.RawMessage) (Message, error) {
	f, err := parseFields("message", raw)
	if err != nil {
		return Message{}, err
	}
	m, _ := buildMessage(f)
	if !m.ID.Valid() {
		return Message{}, errs.Malformed("message", "id")
	}
	return m, nil
}

// HasMedia reports whether the message carries a downloadable attachment: both a
// media key and a direct path must be present.
func (m Message) HasMedia() bool {
	return m.MediaKey != "" && m.DirectPath != ""
}

// Body is the caption for media messages and the raw body otherwise.
func (m Message) Body() string {
	if m.HasMedia() {
		return m.caption
	}
	return m.text
}

// FromMe reports whether the current user sent the message.
func (m Message) FromMe() bool {
	return m.ID.FromMe
}

// ChatID is the chat the message belongs to: To when self-sent, From otherwise.
func (m Message) ChatID() wid.ID {
	if m.ID.FromMe {
		return m.To
	}
	return m.From
}

// SenderID is the author in group chats and From elsewhere.
func (m Message) SenderID() wid.ID {
	if !m.Author.IsZero() {
		return m.Author
	}
	return m.From
}

// Time returns the message timestamp.
func (m Message) Time() time.Time {
	return time.Unix(m.Timestamp, 0)
}

// Patch returns a copy of m with raw applied and the recognized keys that were applied.
func (m Message) Patch(raw json.RawMessage) (Message, []string, error) {
	f, err := parseFields("message", raw)
	if err != nil {
		return m, nil, err
	}
	next, applied := applyPatch(m.raw, f, buildMessage)
	if next.ID != m.ID {
		return m, nil, errs.Malformed("message", "id")
	}
	return next, applied, nil
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := m
	out.raw = m.raw.clone()
	out.VCards = slices.Clone(m.VCards)
	out.MentionedIDs = slices.Clone(m.MentionedIDs)
	out.Links = slices.Clone(m.Links)
	if m.Location != nil {
		loc := *m.Location
		out.Location = &loc
	}
	if m.InviteV4 != nil {
		inv := *m.InviteV4
		out.InviteV4 = &inv
	}
	if m.Buttons != nil {
		b := *m.Buttons
		b.Dynamic = slices.Clone(m.Buttons.Dynamic)
		b.Reply = slices.Clone(m.Buttons.Reply)
		out.Buttons = &b
	}
	return out
}

func buildMessage(f fields) (Message, *reader) {
	r := newReader(f)
	m := Message{
		Ack:              Ack(r.int64("ack")),
		Type:             ParseMessageType(r.str("type")),
		Timestamp:        r.int64("t"),
		From:             r.id("from"),
		To:               r.id("to"),
		Author:           r.id("author"),
		MediaKey:         r.str("mediaKey"),
		DirectPath:       r.str("directPath"),
		IsForwarded:      r.boolean("isForwarded"),
		ForwardingScore:  int(r.int64("forwardingScore")),
		IsStatus:         r.boolean("isStatusV3"),
		IsStarred:        r.boolean("star"),
		Broadcast:        r.boolean("broadcast"),
		HasQuotedMsg:     r.has("quotedMsg"),
		IsNotification:   r.boolean("isNotification"),
		OrderID:          r.str("orderId"),
		Title:            r.str("title"),
		Description:      r.str("description"),
		BusinessOwnerJID: r.str("businessOwnerJid"),
		ProductID:        r.str("productId"),
		caption:          r.str("caption"),
		text:             r.str("body"),
		raw:              f,
	}
	if m.HasQuotedMsg {
		r.ok["quotedMsg"] = true
	}
	r.decode("id", &m.ID)

	var mentions []wid.ID
	if r.decode("mentionedJidList", &mentions) {
		m.MentionedIDs = mentions
	}
	var links []Link
	if r.decode("links", &links) {
		m.Links = links
	}

	switch m.Type {
	case TypeLocation:
		m.Location = &Location{
			Latitude:    r.float("lat"),
			Longitude:   r.float("lng"),
			Description: r.str("loc"),
		}
	case TypeContactCardMulti:
		var list []struct {
			VCard string `json:"vcard"`
		}
		r.decode("vcardList", &list)
		m.VCards = make([]string, 0, len(list))
		for _, c := range list {
			m.VCards = append(m.VCards, c.VCard)
		}
	case TypeContactCard:
		m.VCards = []string{m.text}
	case TypeGroupInvite:
		m.InviteV4 = &InviteV4{
			InviteCode:    r.str("inviteCode"),
			InviteCodeExp: r.int64("inviteCodeExp"),
			GroupID:       r.str("inviteGrp"),
			GroupName:     r.str("inviteGrpName"),
			FromID:        m.From.String(),
			ToID:          m.To.String(),
		}
	}

	if r.boolean("isDynamicReplyButtonsMsg") {
		m.Buttons = &ReplyButtons{
			Footer:   r.str("footer"),
			Question: m.text,
			Title:    m.Title,
			Dynamic:  r.raw("dynamicReplyButtons"),
			Reply:    r.raw("replyButtons"),
		}
	}
	return m, r
}
