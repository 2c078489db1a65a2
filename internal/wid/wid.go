// Package wid implements the composite identifiers used by the remote session:
// {server, user} pairs for chats and contacts and {fromMe, remote, id} triples for
// messages. Raw payloads carry them either as objects or as serialized strings.
package wid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// Well-known servers.
const (
	UserServer      = types.LegacyUserServer
	GroupServer     = types.GroupServer
	BroadcastServer = types.BroadcastServer
)

// ID identifies a chat or a contact.
type ID struct {
	Server string
	User   string
}

// New returns the ID for user on server.
func New(user, server string) ID {
	return ID{Server: server, User: user}
}

// Parse parses a serialized id such as "123@c.us". Device and agent suffixes are dropped.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, fmt.Errorf("parse id: empty string")
	}
	jid, err := types.ParseJID(s)
	if err != nil {
		return ID{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ID{Server: jid.Server, User: jid.User}, nil
}

// MustParse is Parse for literals; it panics on error.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// JID returns the id as a whatsmeow JID.
func (id ID) JID() types.JID {
	return types.NewJID(id.User, id.Server)
}

// String returns the canonical serialized form.
func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.JID().String()
}

// IsZero reports whether the id is unset.
func (id ID) IsZero() bool {
	return id.Server == "" && id.User == ""
}

// IsGroup reports whether the id lives on the group server.
func (id ID) IsGroup() bool {
	return id.Server == GroupServer
}

type rawID struct {
	Server     string `json:"server"`
	User       string `json:"user"`
	Serialized string `json:"_serialized"`
}

// UnmarshalJSON accepts a serialized string, an object with server/user, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*id = ID{}
			return nil
		}
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	var raw rawID
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Server != "" || raw.User != "" {
		*id = ID{Server: raw.Server, User: raw.User}
		return nil
	}
	if raw.Serialized != "" {
		parsed, err := Parse(raw.Serialized)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	}
	*id = ID{}
	return nil
}

// MarshalJSON emits the object form the remote session uses.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(rawID{Server: id.Server, User: id.User, Serialized: id.String()})
}

// MessageID identifies a message within the remote session.
type MessageID struct {
	FromMe      bool
	Remote      ID
	ID          string
	Participant ID
}

// String returns the canonical "fromMe_remote_id[_participant]" form.
func (m MessageID) String() string {
	if m.IsZero() {
		return ""
	}
	s := fmt.Sprintf("%t_%s_%s", m.FromMe, m.Remote, m.ID)
	if !m.Participant.IsZero() {
		s += "_" + m.Participant.String()
	}
	return s
}

// IsZero reports whether the id is unset.
func (m MessageID) IsZero() bool {
	return m.ID == "" && m.Remote.IsZero()
}

// Valid reports whether both the local id and the remote chat are present.
func (m MessageID) Valid() bool {
	return m.ID != "" && !m.Remote.IsZero()
}

// ParseMessageID parses the serialized form returned by String.
func ParseMessageID(s string) (MessageID, error) {
	parts := strings.SplitN(s, "_", 4)
	if len(parts) < 3 {
		return MessageID{}, fmt.Errorf("parse message id %q: want fromMe_remote_id", s)
	}
	var m MessageID
	switch parts[0] {
	case "true":
		m.FromMe = true
	case "false":
	default:
		return MessageID{}, fmt.Errorf("parse message id %q: bad fromMe %q", s, parts[0])
	}
	remote, err := Parse(parts[1])
	if err != nil {
		return MessageID{}, fmt.Errorf("parse message id %q: %w", s, err)
	}
	m.Remote = remote
	m.ID = parts[2]
	if len(parts) == 4 && parts[3] != "" {
		participant, err := Parse(parts[3])
		if err != nil {
			return MessageID{}, fmt.Errorf("parse message id %q: %w", s, err)
		}
		m.Participant = participant
	}
	if m.ID == "" {
		return MessageID{}, fmt.Errorf("parse message id %q: empty local id", s)
	}
	return m, nil
}

type rawMessageID struct {
	FromMe      bool   `json:"fromMe"`
	Remote      ID     `json:"remote"`
	ID          string `json:"id"`
	Participant ID     `json:"participant"`
	Serialized  string `json:"_serialized"`
}

// UnmarshalJSON accepts the object form or the serialized string.
func (m *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = MessageID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseMessageID(s)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	var raw rawMessageID
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ID == "" && raw.Serialized != "" {
		parsed, err := ParseMessageID(raw.Serialized)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	*m = MessageID{FromMe: raw.FromMe, Remote: raw.Remote, ID: raw.ID, Participant: raw.Participant}
	return nil
}

// MarshalJSON emits the object form the remote session uses.
func (m MessageID) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	raw := struct {
		FromMe      bool   `json:"fromMe"`
		Remote      string `json:"remote"`
		ID          string `json:"id"`
		Participant string `json:"participant,omitempty"`
		Serialized  string `json:"_serialized"`
	}{m.FromMe, m.Remote.String(), m.ID, m.Participant.String(), m.String()}
	return json.Marshal(raw)
}
