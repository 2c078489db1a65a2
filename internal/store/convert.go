package store

import "github.com/matheus3301/wppweb/internal/model"

// ChatFromModel flattens a chat for archiving.
func ChatFromModel(c model.Chat) *Chat {
	return &Chat{
		ID:          c.ID.String(),
		Name:        c.Name,
		IsGroup:     c.IsGroup(),
		Archived:    c.Archived,
		Pinned:      c.Pinned,
		UnreadCount: c.UnreadCount,
		Timestamp:   c.Timestamp,
	}
}

// ContactFromModel flattens a contact for archiving.
func ContactFromModel(c model.Contact) *Contact {
	return &Contact{
		ID:         c.ID.String(),
		Number:     c.Number,
		Name:       c.Name,
		PushName:   c.PushName,
		IsBusiness: c.IsBusiness(),
	}
}

// MessageFromModel flattens a message for archiving.
func MessageFromModel(m model.Message) *Message {
	return &Message{
		ID:        m.ID.String(),
		ChatID:    m.ChatID().String(),
		SenderID:  m.SenderID().String(),
		Type:      string(m.Type),
		Body:      m.Body(),
		FromMe:    m.FromMe(),
		HasMedia:  m.HasMedia(),
		Ack:       int(m.Ack),
		Revoked:   m.Type == model.TypeRevoked,
		Timestamp: m.Timestamp,
	}
}

// GroupEventFromModel flattens a group notification for archiving.
func GroupEventFromModel(n model.GroupNotification) *GroupEvent {
	recipients := make([]string, 0, len(n.RecipientIDs))
	for _, id := range n.RecipientIDs {
		recipients = append(recipients, id.String())
	}
	return &GroupEvent{
		ID:         n.ID.String(),
		ChatID:     n.ChatID.String(),
		Type:       string(n.Type),
		AuthorID:   n.Author.String(),
		Recipients: recipients,
		Body:       n.Body,
		Timestamp:  n.Timestamp,
	}
}
