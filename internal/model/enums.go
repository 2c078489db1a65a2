package model

// Ack is the delivery state of a message.
type Ack int

const (
	AckError   Ack = -1
	AckPending Ack = 0
	AckServer  Ack = 1
	AckDevice  Ack = 2
	AckRead    Ack = 3
	AckPlayed  Ack = 4
)

func (a Ack) String() string {
	switch a {
	case AckError:
		return "error"
	case AckPending:
		return "pending"
	case AckServer:
		return "server"
	case AckDevice:
		return "device"
	case AckRead:
		return "read"
	case AckPlayed:
		return "played"
	default:
		return "unknown"
	}
}

// MessageType is the content kind of a message, using the session's wire names.
type MessageType string

const (
	TypeText             MessageType = "chat"
	TypeImage            MessageType = "image"
	TypeVideo            MessageType = "video"
	TypeAudio            MessageType = "audio"
	TypeVoice            MessageType = "ptt"
	TypeDocument         MessageType = "document"
	TypeSticker          MessageType = "sticker"
	TypeLocation         MessageType = "location"
	TypeContactCard      MessageType = "vcard"
	TypeContactCardMulti MessageType = "multi_vcard"
	TypeOrder            MessageType = "order"
	TypeProduct          MessageType = "product"
	TypeGroupInvite      MessageType = "groups_v4_invite"
	TypeList             MessageType = "list"
	TypeButtonResponse   MessageType = "buttons_response"
	TypeRevoked          MessageType = "revoked"
	TypeUnknown          MessageType = "unknown"
)

var knownTypes = map[MessageType]bool{
	TypeText: true, TypeImage: true, TypeVideo: true, TypeAudio: true, TypeVoice: true,
	TypeDocument: true, TypeSticker: true, TypeLocation: true, TypeContactCard: true,
	TypeContactCardMulti: true, TypeOrder: true, TypeProduct: true, TypeGroupInvite: true,
	TypeList: true, TypeButtonResponse: true, TypeRevoked: true, TypeUnknown: true,
}

// ParseMessageType maps a wire type name to a MessageType; unrecognized names are TypeUnknown.
func ParseMessageType(s string) MessageType {
	t := MessageType(s)
	if knownTypes[t] {
		return t
	}
	return TypeUnknown
}

// GroupNotificationType is the kind of change a group notification reports.
type GroupNotificationType string

const (
	GroupAdd         GroupNotificationType = "add"
	GroupInvite      GroupNotificationType = "invite"
	GroupRemove      GroupNotificationType = "remove"
	GroupLeave       GroupNotificationType = "leave"
	GroupSubject     GroupNotificationType = "subject"
	GroupDescription GroupNotificationType = "description"
	GroupPicture     GroupNotificationType = "picture"
	GroupAnnounce    GroupNotificationType = "announce"
	GroupRestrict    GroupNotificationType = "restrict"
)
