// Package host defines the two capabilities the core consumes from the automation
// host: evaluating named queries against the live session and a stream of
// lifecycle and raw change events.
package host

import (
	"bytes"
	"context"
	"encoding/json"
)

// Query names a remote operation the automation host knows how to execute.
type Query string

// Entity accessors.
const (
	QueryChatGet          Query = "chat.get"
	QueryChatList         Query = "chat.list"
	QueryContactGet       Query = "contact.get"
	QueryContactList      Query = "contact.list"
	QueryMessageGet       Query = "message.get"
	QueryLabelList        Query = "label.list"
	QueryLabelGet         Query = "label.get"
	QueryChatLabels       Query = "chat.labels"
	QueryChatsByLabel     Query = "label.chats"
	QueryClientInfo       Query = "client.info"
	QueryBatteryStatus    Query = "client.battery"
	QueryState            Query = "client.state"
	QueryVersion          Query = "client.version"
	QueryIsRegistered     Query = "contact.is_registered"
	QueryNumberID         Query = "contact.number_id"
	QueryProfilePicURL    Query = "contact.profile_pic_url"
	QueryContactAbout     Query = "contact.about"
	QuerySearchMessages   Query = "message.search"
	QueryMessageQuoted    Query = "message.quoted"
	QueryMessageInfo      Query = "message.info"
	QueryChatLoaded       Query = "chat.loaded_messages"
	QueryChatLoadEarlier  Query = "chat.load_earlier"
	QueryMediaStage       Query = "media.stage"
	QueryMediaResolve     Query = "media.resolve"
	QueryMediaDecrypt     Query = "media.decrypt"
	QueryGroupInviteCode  Query = "group.invite_code"
	QueryInviteInfo       Query = "group.invite_info"
	QueryAcceptInviteV4   Query = "group.accept_invite_v4"
	QueryContactBlock     Query = "contact.block"
	QueryContactUnblock   Query = "contact.unblock"
	QueryMessageSend      Query = "message.send"
	QueryMessageForward   Query = "message.forward"
	QueryMessageDelete    Query = "message.delete"
	QueryMessageStar      Query = "message.star"
	QueryChatSendSeen     Query = "chat.send_seen"
	QueryChatArchive      Query = "chat.archive"
	QueryChatPin          Query = "chat.pin"
	QueryChatMute         Query = "chat.mute"
	QueryChatMarkUnread   Query = "chat.mark_unread"
	QueryChatClear        Query = "chat.clear"
	QueryChatDelete       Query = "chat.delete"
	QueryChatState        Query = "chat.state"
	QueryGroupCreate      Query = "group.create"
	QueryGroupParticipant Query = "group.participants"
	QueryGroupSubject     Query = "group.subject"
	QueryGroupDescription Query = "group.description"
	QueryGroupSettings    Query = "group.settings"
	QueryGroupRevokeInv   Query = "group.revoke_invite"
	QueryGroupLeave       Query = "group.leave"
	QueryGroupAcceptInv   Query = "group.accept_invite"
	QuerySetStatus        Query = "client.set_status"
	QuerySetDisplayName   Query = "client.set_display_name"
	QueryPresence         Query = "client.presence_available"
	QueryLogout           Query = "client.logout"
	QueryResetState       Query = "client.reset_state"
	QueryRestoreSession   Query = "client.restore_session"
	QueryInterface        Query = "ui.command"
)

// EventType is the kind of a host event.
type EventType string

const (
	EventQR            EventType = "qr"
	EventAuthenticated EventType = "authenticated"
	EventAuthFailure   EventType = "auth_failure"
	EventReady         EventType = "ready"
	EventDisconnected  EventType = "disconnected"
	EventStateChange   EventType = "change_state"
	EventBattery       EventType = "change_battery"
	EventRawChange     EventType = "raw_change"
)

// Entity kinds carried by raw change events.
const (
	EntityMessage           = "message"
	EntityChat              = "chat"
	EntityContact           = "contact"
	EntityGroupNotification = "group_notification"
)

// Event is one notification from the automation host. Entity and Change are set
// for raw changes; Payload holds the raw entity or the event argument; Extra holds
// a secondary payload (the revoked original, the new ack value).
type Event struct {
	Type    EventType       `json:"type"`
	Entity  string          `json:"entity,omitempty"`
	Change  string          `json:"change,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Extra   json.RawMessage `json:"extra,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// Host is the automation host driving the remote session.
//
// Evaluate runs query with JSON-compatible args and returns the JSON result; a
// JSON null means the query found nothing. A broken channel is reported as an error
// matching errs.ErrSessionUnavailable. Events is closed when the host goes away.
type Host interface {
	Evaluate(ctx context.Context, query Query, args ...any) (json.RawMessage, error)
	Events() <-chan Event
	Close() error
}

// IsNull reports whether a query result is empty or JSON null.
func IsNull(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
