package wa

import (
	"context"
	"fmt"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/wid"
	"go.uber.org/zap"
)

// sendOptions is what the session's send routine receives.
type sendOptions struct {
	LinkPreview         bool                `json:"linkPreview,omitempty"`
	SendAudioAsVoice    bool                `json:"sendAudioAsVoice,omitempty"`
	SendVideoAsGif      bool                `json:"sendVideoAsGif,omitempty"`
	SendMediaAsSticker  bool                `json:"sendMediaAsSticker,omitempty"`
	SendMediaAsDocument bool                `json:"sendMediaAsDocument,omitempty"`
	ParseVCards         bool                `json:"parseVCards"`
	Caption             string              `json:"caption,omitempty"`
	QuotedMessageID     string              `json:"quotedMessageId,omitempty"`
	MentionedJidList    []string            `json:"mentionedJidList"`
	Attachment          *model.MediaPayload `json:"attachment,omitempty"`
	Location            *model.Location     `json:"location,omitempty"`
	ContactCard         string              `json:"contactCard,omitempty"`
	ContactCardList     []string            `json:"contactCardList,omitempty"`
	StickerMetadata     *stickerMetadata    `json:"stickerMetadata,omitempty"`
	ExtraOptions        map[string]any      `json:"extraOptions,omitempty"`
}

type stickerMetadata struct {
	Name       string   `json:"name,omitempty"`
	Author     string   `json:"author,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// normalize splits content and options into the message body and the send
// routine's options. Non-text content travels in the options and empties the body.
func normalize(content model.Content, opts model.MessageSendOptions) (string, sendOptions) {
	out := sendOptions{
		LinkPreview:         opts.LinkPreview,
		SendAudioAsVoice:    opts.SendAudioAsVoice,
		SendVideoAsGif:      opts.SendVideoAsGif,
		SendMediaAsSticker:  opts.SendMediaAsSticker,
		SendMediaAsDocument: opts.SendMediaAsDocument,
		ParseVCards:         opts.ParseVCards,
		Caption:             opts.Caption,
		QuotedMessageID:     opts.QuotedMessageID,
		MentionedJidList:    make([]string, 0, len(opts.Mentions)),
		ExtraOptions:        opts.Extra,
	}
	for _, id := range opts.Mentions {
		out.MentionedJidList = append(out.MentionedJidList, id.String())
	}

	var body string
	switch c := content.(type) {
	case model.Text:
		body = string(c)
		if opts.Media != nil {
			out.Attachment = opts.Media
			out.Caption = body
			body = ""
		}
	case *model.MediaPayload:
		out.Attachment = c
	case model.Location:
		out.Location = &c
	case model.Contact:
		out.ContactCard = c.ID.String()
	case model.ContactList:
		switch len(c) {
		case 0:
		case 1:
			out.ContactCard = c[0].ID.String()
		default:
			out.ContactCardList = make([]string, 0, len(c))
			for _, ct := range c {
				out.ContactCardList = append(out.ContactCardList, ct.ID.String())
			}
		}
	}

	if out.SendMediaAsSticker && out.Attachment != nil {
		out.StickerMetadata = &stickerMetadata{
			Name:       opts.StickerName,
			Author:     opts.StickerAuthor,
			Categories: opts.StickerCategories,
		}
	}
	return body, out
}

// SendMessage sends content to a chat and returns the created message. A nil
// opts means model.DefaultSendOptions.
func (c *Client) SendMessage(ctx context.Context, chatID wid.ID, content model.Content, opts *model.MessageSendOptions) (model.Message, error) {
	o := model.DefaultSendOptions()
	if opts != nil {
		o = *opts
	}
	body, wire := normalize(content, o)

	if o.SendSeen {
		if _, err := c.SendSeen(ctx, chatID); err != nil {
			return model.Message{}, fmt.Errorf("send message: %w", err)
		}
	}

	res, err := c.eval(ctx, host.QueryMessageSend, chatID.String(), body, wire)
	if err != nil {
		return model.Message{}, fmt.Errorf("send message to %s: %w", chatID, err)
	}
	if host.IsNull(res) {
		return model.Message{}, fmt.Errorf("send message to %s: %w", chatID, errs.ErrNotFound)
	}
	msg, err := model.NewMessage(res)
	if err != nil {
		return model.Message{}, fmt.Errorf("send message to %s: %w", chatID, err)
	}
	c.logger.Debug("message sent", zap.String("chat", chatID.String()), zap.String("id", msg.ID.String()))
	return msg, nil
}

// Reply sends content quoting m. A zero chatID replies in m's chat. The quoted
// message is loaded into the session first so it can be referenced.
func (c *Client) Reply(ctx context.Context, m model.Message, content model.Content, chatID wid.ID, opts *model.MessageSendOptions) (model.Message, error) {
	if chatID.IsZero() {
		chatID = m.ChatID()
	}
	o := model.DefaultSendOptions()
	if opts != nil {
		o = *opts
	}
	o.QuotedMessageID = m.ID.String()

	if _, err := c.history.LoadMessage(ctx, m.ChatID(), m.ID); err != nil {
		c.logger.Debug("could not load quoted message", zap.String("id", m.ID.String()), zap.Error(err))
	}
	return c.SendMessage(ctx, chatID, content, &o)
}

// Forward forwards m to another chat.
func (c *Client) Forward(ctx context.Context, m model.Message, chatID wid.ID) error {
	if err := c.call(ctx, host.QueryMessageForward, m.ID.String(), chatID.String()); err != nil {
		return fmt.Errorf("forward message %s: %w", m.ID, err)
	}
	return nil
}
