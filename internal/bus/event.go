package bus

import "time"

// Event kinds. Subscribers filter on the namespace prefix before the first dot.
const (
	KindStatusChanged = "session.status_changed"

	KindAuthenticated  = "session.authenticated"
	KindAuthFailure    = "session.auth_failure"
	KindReady          = "session.ready"
	KindDisconnected   = "session.disconnected"
	KindQR             = "session.qr"
	KindStateChanged   = "session.state_changed"
	KindBatteryChanged = "session.battery_changed"

	KindMessageReceived       = "message.received"
	KindMessageCreated        = "message.created"
	KindMessageAck            = "message.ack"
	KindMessageRevokeEveryone = "message.revoke_everyone"
	KindMessageRevokeMe       = "message.revoke_me"
	KindMessageMediaUploaded  = "message.media_uploaded"

	KindGroupJoin   = "group.join"
	KindGroupLeave  = "group.leave"
	KindGroupUpdate = "group.update"

	KindChatUpdated    = "chat.updated"
	KindContactUpdated = "contact.updated"

	KindArchived = "archive.stored"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
