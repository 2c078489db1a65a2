package model

import (
	"encoding/json"

	"github.com/matheus3301/wppweb/internal/errs"
)

// Label is a business label that can be attached to chats.
type Label struct {
	ID       string
	Name     string
	HexColor string

	raw fields
}

// NewLabel builds a Label from a raw payload.
func NewLabel(raw json.RawMessage) (Label, error) {
	f, err := parseFields("label", raw)
	if err != nil {
		return Label{}, err
	}
	l, _ := buildLabel(f)
	if l.ID == "" {
		return Label{}, errs.Malformed("label", "id")
	}
	return l, nil
}

// Patch returns a copy of l with raw applied and the recognized keys that were applied.
func (l Label) Patch(raw json.RawMessage) (Label, []string, error) {
	f, err := parseFields("label", raw)
	if err != nil {
		return l, nil, err
	}
	next, applied := applyPatch(l.raw, f, buildLabel)
	if next.ID != l.ID {
		return l, nil, errs.Malformed("label", "id")
	}
	return next, applied, nil
}

// Clone returns a deep copy of l.
func (l Label) Clone() Label {
	out := l
	out.raw = l.raw.clone()
	return out
}

func buildLabel(f fields) (Label, *reader) {
	r := newReader(f)
	return Label{
		ID:       r.str("id"),
		Name:     r.str("name"),
		HexColor: r.str("hexColor"),
		raw:      f,
	}, r
}
