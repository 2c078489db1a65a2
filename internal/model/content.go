package model

import "github.com/matheus3301/wppweb/internal/wid"

// Content is a sendable message body. The set of implementations is closed:
// Text, *MediaPayload, Location, Contact and ContactList.
type Content interface {
	isContent()
}

// Text is a plain text message body.
type Text string

// ContactList sends several contact cards in one message.
type ContactList []Contact

func (Text) isContent()          {}
func (*MediaPayload) isContent() {}
func (Location) isContent()      {}
func (Contact) isContent()       {}
func (ContactList) isContent()   {}

// MessageSendOptions are the options recognized by SendMessage.
type MessageSendOptions struct {
	LinkPreview         bool
	SendAudioAsVoice    bool
	SendVideoAsGif      bool
	SendMediaAsSticker  bool
	SendMediaAsDocument bool
	ParseVCards         bool
	Caption             string
	QuotedMessageID     string
	Mentions            []wid.ID
	SendSeen            bool
	Media               *MediaPayload
	StickerName         string
	StickerAuthor       string
	StickerCategories   []string
	Extra               map[string]any
}

// DefaultSendOptions mirrors the session defaults: link previews, vCard parsing and
// send-seen are on.
func DefaultSendOptions() MessageSendOptions {
	return MessageSendOptions{
		LinkPreview: true,
		ParseVCards: true,
		SendSeen:    true,
	}
}
