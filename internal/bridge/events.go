package bridge

import (
	"encoding/json"

	"github.com/matheus3301/wppweb/internal/model"
)

// Payloads published on the bus. Message events carry model.Message, group
// events model.GroupNotification, chat.updated model.Chat, contact.updated
// model.Contact and session.battery_changed model.BatteryStatus.

// Authenticated carries the opaque credential blob the host reported.
type Authenticated struct {
	Session json.RawMessage
}

// AuthFailure is published when the host rejected the credentials.
type AuthFailure struct {
	Reason string
}

// Disconnect is published when the session went away.
type Disconnect struct {
	Reason string
}

// QR carries a pairing code to be shown to the user.
type QR struct {
	Code string
}

// StateChange carries the remote connection state, for example "CONNECTED" or
// "CONFLICT".
type StateChange struct {
	State string
}

// Ack is published when a message's acknowledgement level changed.
type Ack struct {
	Message model.Message
	Ack     model.Ack
}

// Revoke is published when a message was deleted for everyone. Revoked holds
// the message as it was before deletion when the host captured it.
type Revoke struct {
	Message model.Message
	Revoked *model.Message
}
