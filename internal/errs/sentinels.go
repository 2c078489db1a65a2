// Package errs contains the error taxonomy shared by the entity, resolver,
// history and media layers.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload indicates a raw payload is missing a required identity field.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrNotFound indicates an id no longer resolves in the remote session.
	ErrNotFound = errors.New("not found")

	// ErrSessionUnavailable indicates the channel to the automation host is broken.
	ErrSessionUnavailable = errors.New("session unavailable")

	// ErrNotGroup is returned by group operations invoked on a private chat.
	ErrNotGroup = errors.New("chat is not a group")
)

// MalformedPayloadError names the entity kind and the field that made a payload unusable.
type MalformedPayloadError struct {
	Kind  string
	Field string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: missing or invalid %q", e.Kind, e.Field)
}

// Is reports ErrMalformedPayload so callers can match with errors.Is.
func (e *MalformedPayloadError) Is(target error) bool {
	return target == ErrMalformedPayload
}

// Malformed returns a *MalformedPayloadError for kind and field.
func Malformed(kind, field string) error {
	return &MalformedPayloadError{Kind: kind, Field: field}
}
