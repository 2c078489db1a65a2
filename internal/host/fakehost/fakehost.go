// Package fakehost provides a scripted, in-memory automation host for tests.
package fakehost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/matheus3301/wppweb/internal/errs"
	"github.com/matheus3301/wppweb/internal/host"
)

// Call is one recorded Evaluate invocation.
type Call struct {
	Query host.Query
	Args  []json.RawMessage
}

// Arg decodes the i-th argument into dst.
func (c Call) Arg(i int, dst any) error {
	if i >= len(c.Args) {
		return fmt.Errorf("argument %d of %s: missing", i, c.Query)
	}
	return json.Unmarshal(c.Args[i], dst)
}

// Handler answers a query. The returned value is marshaled to JSON unless it is
// already a json.RawMessage; a nil value is JSON null.
type Handler func(call Call) (any, error)

// Host is a host.Host whose answers are scripted with On and Return. Queries with
// no handler fail, so an unexpected remote call is never silent.
type Host struct {
	mu       sync.Mutex
	handlers map[host.Query]Handler
	calls    []Call
	events   chan host.Event
	closed   bool
}

var _ host.Host = (*Host)(nil)

// New creates an empty scripted host.
func New() *Host {
	return &Host{
		handlers: make(map[host.Query]Handler),
		events:   make(chan host.Event, 64),
	}
}

// On installs fn as the handler for q, replacing any previous one.
func (h *Host) On(q host.Query, fn Handler) *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[q] = fn
	return h
}

// Return scripts q to always answer v.
func (h *Host) Return(q host.Query, v any) *Host {
	return h.On(q, func(Call) (any, error) { return v, nil })
}

// Sequence scripts q to answer values in order; after the last one it answers null.
func (h *Host) Sequence(q host.Query, values ...any) *Host {
	var mu sync.Mutex
	next := 0
	return h.On(q, func(Call) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(values) {
			return nil, nil
		}
		v := values[next]
		next++
		return v, nil
	})
}

// Evaluate implements host.Host.
func (h *Host) Evaluate(ctx context.Context, q host.Query, args ...any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w: %v", q, errs.ErrSessionUnavailable, err)
	}

	call := Call{Query: q, Args: make([]json.RawMessage, 0, len(args))}
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("marshal argument %d of %s: %w", i, q, err)
		}
		call.Args = append(call.Args, b)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("evaluate %s: %w", q, errs.ErrSessionUnavailable)
	}
	h.calls = append(h.calls, call)
	fn, ok := h.handlers[q]
	h.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("fakehost: unscripted query %s", q)
	}
	v, err := fn(call)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case nil:
		return json.RawMessage("null"), nil
	case json.RawMessage:
		return v, nil
	case string:
		// Strings are taken as literal JSON so fixtures stay readable.
		return json.RawMessage(v), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result of %s: %w", q, err)
	}
	return b, nil
}

// Calls returns the recorded invocations of q, or of every query when q is empty.
func (h *Host) Calls(q host.Query) []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Call
	for _, c := range h.calls {
		if q == "" || c.Query == q {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times q was evaluated, or the total when q is empty.
func (h *Host) Count(q host.Query) int {
	return len(h.Calls(q))
}

// Emit delivers ev on the event stream. It blocks while the buffer is full.
func (h *Host) Emit(ev host.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.events <- ev
}

// EmitRaw emits a raw change for entity with the given payload.
func (h *Host) EmitRaw(entity, change string, payload any) {
	h.Emit(host.Event{Type: host.EventRawChange, Entity: entity, Change: change, Payload: mustJSON(payload)})
}

// Events implements host.Host.
func (h *Host) Events() <-chan host.Event { return h.events }

// Close implements host.Host. Later evaluations fail with ErrSessionUnavailable.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.events)
	}
	return nil
}

func mustJSON(v any) json.RawMessage {
	switch v := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		return v
	case string:
		return json.RawMessage(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
