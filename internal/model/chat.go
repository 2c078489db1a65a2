package model

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// ChatKind discriminates the chat variants.
type ChatKind int

const (
	ChatPrivate ChatKind = iota
	ChatGroup
)

func (k ChatKind) String() string {
	switch k {
	case ChatPrivate:
		return "private"
	case ChatGroup:
		return "group"
	default:
		return "unknown"
	}
}

// Chat is a conversation in the remote session. Group is non-nil iff Kind is ChatGroup.
type Chat struct {
	ID             wid.ID
	Name           string
	Kind           ChatKind
	IsReadOnly     bool
	UnreadCount    int
	Timestamp      int64
	Archived       bool
	Pinned         bool
	IsMuted        bool
	MuteExpiration int64

	Group *GroupInfo

	raw fields
}

// GroupInfo carries the attributes only group chats have.
type GroupInfo struct {
	Owner        wid.ID
	CreatedAt    time.Time
	Description  string
	Participants []Participant
}

// Participant is a member of a group chat.
type Participant struct {
	ID           wid.ID
	IsAdmin      bool
	IsSuperAdmin bool
}

// NewChat builds a Chat from a raw payload. The isGroup flag decides the variant
// once; later patches never change it.
func NewChat(raw json.RawMessage) (Chat, error) {
	f, err := parseFields("chat", raw)
	if err != nil {
		return Chat{}, err
	}
	kind := ChatPrivate
	if newReader(f).boolean("isGroup") {
		kind = ChatGroup
	}
	c, _ := buildChat(f, kind)
	if c.ID.IsZero() {
		return Chat{}, errs.Malformed("chat", "id")
	}
	return c, nil
}

// IsGroup reports whether the chat is the group variant.
func (c Chat) IsGroup() bool {
	return c.Kind == ChatGroup
}

// Time returns the last-activity timestamp.
func (c Chat) Time() time.Time {
	return time.Unix(c.Timestamp, 0)
}

// Patch returns a copy of c with raw applied and the recognized keys that were applied.
func (c Chat) Patch(raw json.RawMessage) (Chat, []string, error) {
	f, err := parseFields("chat", raw)
	if err != nil {
		return c, nil, err
	}
	next, applied := applyPatch(c.raw, f, func(f fields) (Chat, *reader) {
		return buildChat(f, c.Kind)
	})
	if next.ID != c.ID {
		return c, nil, errs.Malformed("chat", "id")
	}
	return next, applied, nil
}

// Clone returns a deep copy of c.
func (c Chat) Clone() Chat {
	out := c
	out.raw = c.raw.clone()
	if c.Group != nil {
		g := *c.Group
		g.Participants = slices.Clone(c.Group.Participants)
		out.Group = &g
	}
	return out
}

type rawGroupMetadata struct {
	Owner        wid.ID  `json:"owner"`
	Creation     flexInt `json:"creation"`
	Desc         string  `json:"desc"`
	Participants []struct {
		ID           wid.ID   `json:"id"`
		IsAdmin      flexBool `json:"isAdmin"`
		IsSuperAdmin flexBool `json:"isSuperAdmin"`
	} `json:"participants"`
}

func buildChat(f fields, kind ChatKind) (Chat, *reader) {
	r := newReader(f)
	c := Chat{
		ID:             r.id("id"),
		Name:           r.str("formattedTitle"),
		Kind:           kind,
		IsReadOnly:     r.boolean("isReadOnly"),
		UnreadCount:    int(r.int64("unreadCount")),
		Timestamp:      r.int64("t"),
		Archived:       r.boolean("archive"),
		Pinned:         r.boolean("pin"),
		IsMuted:        r.boolean("isMuted"),
		MuteExpiration: r.int64("muteExpiration"),
		raw:            f,
	}

	switch kind {
	case ChatGroup:
		g := &GroupInfo{}
		var meta rawGroupMetadata
		if r.decode("groupMetadata", &meta) {
			g.Owner = meta.Owner
			if meta.Creation > 0 {
				g.CreatedAt = time.Unix(int64(meta.Creation), 0)
			}
			g.Description = meta.Desc
			for _, p := range meta.Participants {
				g.Participants = append(g.Participants, Participant{
					ID:           p.ID,
					IsAdmin:      bool(p.IsAdmin),
					IsSuperAdmin: bool(p.IsSuperAdmin),
				})
			}
		}
		c.Group = g
	case ChatPrivate:
	}
	return c, r
}
