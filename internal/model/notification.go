package model

import (
	"encoding/json"
	"slices"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// GroupNotification reports a membership or settings change in a group.
type GroupNotification struct {
	ID           wid.MessageID
	Body         string
	Type         GroupNotificationType
	Timestamp    int64
	ChatID       wid.ID
	Author       wid.ID
	RecipientIDs []wid.ID

	raw fields
}

// NewGroupNotification builds a GroupNotification from a raw notification message payload.
func NewGroupNotification(raw json.RawMessage) (GroupNotification, error) {
	f, err := parseFields("group notification", raw)
	if err != nil {
		return GroupNotification{}, err
	}
	n, _ := buildGroupNotification(f)
	if !n.ID.Valid() {
		return GroupNotification{}, errs.Malformed("group notification", "id")
	}
	return n, nil
}

// Patch returns a copy of n with raw applied and the recognized keys that were applied.
func (n GroupNotification) Patch(raw json.RawMessage) (GroupNotification, []string, error) {
	f, err := parseFields("group notification", raw)
	if err != nil {
		return n, nil, err
	}
	next, applied := applyPatch(n.raw, f, buildGroupNotification)
	if next.ID != n.ID {
		return n, nil, errs.Malformed("group notification", "id")
	}
	return next, applied, nil
}

// Clone returns a deep copy of n.
func (n GroupNotification) Clone() GroupNotification {
	out := n
	out.raw = n.raw.clone()
	out.RecipientIDs = slices.Clone(n.RecipientIDs)
	return out
}

func buildGroupNotification(f fields) (GroupNotification, *reader) {
	r := newReader(f)
	n := GroupNotification{
		Body:      r.str("body"),
		Type:      GroupNotificationType(r.str("subtype")),
		Timestamp: r.int64("t"),
		Author:    r.id("author"),
		raw:       f,
	}
	r.decode("id", &n.ID)
	if n.ID.FromMe {
		n.ChatID = r.id("to")
	} else {
		n.ChatID = r.id("from")
	}
	if n.ChatID.IsZero() {
		n.ChatID = n.ID.Remote
	}
	var recipients []wid.ID
	if r.decode("recipients", &recipients) {
		n.RecipientIDs = recipients
	}
	return n, r
}
