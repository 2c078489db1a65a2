package model

import (
	"encoding/json"
	"slices"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// ContactKind discriminates the contact variants.
type ContactKind int

const (
	ContactPrivate ContactKind = iota
	ContactBusiness
)

func (k ContactKind) String() string {
	switch k {
	case ContactPrivate:
		return "private"
	case ContactBusiness:
		return "business"
	default:
		return "unknown"
	}
}

// Contact is a user known to the remote session. BusinessProfile is only set
// for the business variant.
type Contact struct {
	ID            wid.ID
	Number        string
	Name          string
	PushName      string
	ShortName     string
	Kind          ContactKind
	IsEnterprise  bool
	IsMe          bool
	IsUser        bool
	IsGroup       bool
	IsWAContact   bool
	IsMyContact   bool
	IsBlocked     bool
	StatusMute    bool
	Labels        []string
	Type          string
	SectionHeader string
	VerifiedName  string
	VerifiedLevel int

	BusinessProfile json.RawMessage

	raw fields
}

// NewContact builds a Contact from a raw payload, choosing the variant from isBusiness.
func NewContact(raw json.RawMessage) (Contact, error) {
	f, err := parseFields("contact", raw)
	if err != nil {
		return Contact{}, err
	}
	kind := ContactPrivate
	if newReader(f).boolean("isBusiness") {
		kind = ContactBusiness
	}
	c, _ := buildContact(f, kind)
	if c.ID.IsZero() {
		return Contact{}, errs.Malformed("contact", "id")
	}
	return c, nil
}

// IsBusiness reports whether the contact is the business variant.
func (c Contact) IsBusiness() bool {
	return c.Kind == ContactBusiness
}

// DisplayName returns the first non-empty of name, push name and number.
func (c Contact) DisplayName() string {
	for _, s := range []string{c.Name, c.PushName, c.Number} {
		if s != "" {
			return s
		}
	}
	return c.ID.String()
}

// Patch returns a copy of c with raw applied and the recognized keys that were applied.
func (c Contact) Patch(raw json.RawMessage) (Contact, []string, error) {
	f, err := parseFields("contact", raw)
	if err != nil {
		return c, nil, err
	}
	next, applied := applyPatch(c.raw, f, func(f fields) (Contact, *reader) {
		return buildContact(f, c.Kind)
	})
	if next.ID != c.ID {
		return c, nil, errs.Malformed("contact", "id")
	}
	return next, applied, nil
}

// Clone returns a deep copy of c.
func (c Contact) Clone() Contact {
	out := c
	out.raw = c.raw.clone()
	out.Labels = slices.Clone(c.Labels)
	out.BusinessProfile = slices.Clone(c.BusinessProfile)
	return out
}

func buildContact(f fields, kind ContactKind) (Contact, *reader) {
	r := newReader(f)
	c := Contact{
		ID:            r.id("id"),
		Number:        r.str("userid"),
		Name:          r.str("name"),
		PushName:      r.str("pushname"),
		ShortName:     r.str("shortName"),
		Kind:          kind,
		IsEnterprise:  r.boolean("isEnterprise"),
		IsMe:          r.boolean("isMe"),
		IsUser:        r.boolean("isUser"),
		IsGroup:       r.boolean("isGroup"),
		IsWAContact:   r.boolean("isWAContact"),
		IsMyContact:   r.boolean("isMyContact"),
		IsBlocked:     r.boolean("isBlocked"),
		StatusMute:    r.boolean("statusMute"),
		Labels:        r.strings("labels"),
		Type:          r.str("type"),
		SectionHeader: r.str("sectionHeader"),
		VerifiedName:  r.str("verifiedName"),
		VerifiedLevel: int(r.int64("verifiedLevel")),
		raw:           f,
	}
	switch kind {
	case ContactBusiness:
		c.BusinessProfile = r.raw("businessProfile")
	case ContactPrivate:
	}
	return c, r
}
