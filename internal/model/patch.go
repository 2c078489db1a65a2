// Package model holds the typed entities derived from raw session payloads.
//
// Entities are values. A raw payload is decoded into a field map which is kept
// alongside the typed attributes; Patch merges a new payload over a copy of
// that map and re-derives every attribute, so a partial payload never breaks
// identity and an older value is never affected by a newer patch.
package model

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/wid"
)

// fields is a decoded raw payload: top-level keys mapped to their raw values.
type fields map[string]json.RawMessage

func parseFields(kind string, raw json.RawMessage) (fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errs.Malformed(kind, "payload")
	}
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.Malformed(kind, "payload")
	}
	return f, nil
}

// merge returns a copy of f with every key of patch overlaid.
func (f fields) merge(patch fields) fields {
	out := make(fields, len(f)+len(patch))
	maps.Copy(out, f)
	maps.Copy(out, patch)
	return out
}

func (f fields) clone() fields {
	if f == nil {
		return nil
	}
	return maps.Clone(f)
}

// reader decodes typed values out of a field map and remembers which keys
// decoded successfully.
type reader struct {
	f   fields
	ok  map[string]bool
	bad map[string]bool
}

func newReader(f fields) *reader {
	return &reader{f: f, ok: make(map[string]bool), bad: make(map[string]bool)}
}

// applyPatch merges patch over base and rebuilds. Patch keys whose values fail to
// decode are dropped so they never clobber a previously good value.
func applyPatch[T any](base, patch fields, build func(fields) (T, *reader)) (T, []string) {
	next, r := build(base.merge(patch))
	if len(r.bad) > 0 {
		patch = maps.Clone(patch)
		for k := range r.bad {
			delete(patch, k)
		}
		next, r = build(base.merge(patch))
	}
	return next, r.applied(patch)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func (r *reader) has(key string) bool {
	v, ok := r.f[key]
	return ok && !isNull(v)
}

func (r *reader) decode(key string, dst any) bool {
	v, ok := r.f[key]
	if !ok {
		return false
	}
	if isNull(v) {
		r.ok[key] = true
		return false
	}
	if err := json.Unmarshal(v, dst); err != nil {
		r.bad[key] = true
		return false
	}
	r.ok[key] = true
	return true
}

func (r *reader) str(key string) string {
	v, ok := r.f[key]
	if !ok {
		return ""
	}
	if isNull(v) {
		r.ok[key] = true
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) == nil {
		r.ok[key] = true
		return s
	}
	// Numbers show up where strings are expected (ids, coordinates).
	var n json.Number
	if json.Unmarshal(v, &n) == nil {
		r.ok[key] = true
		return n.String()
	}
	r.bad[key] = true
	return ""
}

func (r *reader) boolean(key string) bool {
	var b flexBool
	if r.decode(key, &b) {
		return bool(b)
	}
	return false
}

func (r *reader) int64(key string) int64 {
	var n flexInt
	if r.decode(key, &n) {
		return int64(n)
	}
	return 0
}

func (r *reader) float(key string) float64 {
	var n flexFloat
	if r.decode(key, &n) {
		return float64(n)
	}
	return 0
}

func (r *reader) strings(key string) []string {
	var s []string
	if r.decode(key, &s) {
		return s
	}
	return nil
}

func (r *reader) id(key string) wid.ID {
	var id wid.ID
	if r.decode(key, &id) {
		return id
	}
	return wid.ID{}
}

func (r *reader) raw(key string) json.RawMessage {
	v, ok := r.f[key]
	if !ok || isNull(v) {
		return nil
	}
	r.ok[key] = true
	return slices.Clone(v)
}

// applied returns the sorted keys of patch that are recognized and decoded.
func (r *reader) applied(patch fields) []string {
	var keys []string
	for k := range patch {
		if r.ok[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// flexBool accepts true/false, numbers (non-zero is true) and null.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*b = n != 0
	return nil
}

// flexInt accepts JSON numbers (truncated) and numeric strings.
type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexInt(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = flexInt(v)
	return nil
}

// flexFloat accepts JSON numbers and numeric strings.
type flexFloat float64

func (n *flexFloat) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexFloat(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = flexFloat(v)
	return nil
}
