// Package bridge turns the automation host's event stream into typed events on
// the bus. Lifecycle signals drive the status machine; raw entity changes are
// built into entities and published only while the session is Ready.
package bridge

import (
	"context"
	"encoding/json"

	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/host"
	"github.com/matheus3301/wppweb/internal/metrics"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/status"
	"go.uber.org/zap"
)

// DefaultBufferSize bounds the raw changes held while not Ready.
const DefaultBufferSize = 256

// Raw change names understood for message entities.
const (
	ChangeMessage        = "message"
	ChangeMessageCreate  = "message_create"
	ChangeMessageAck     = "message_ack"
	ChangeRevokeEveryone = "message_revoke_everyone"
	ChangeRevokeMe       = "message_revoke_me"
	ChangeMediaUploaded  = "media_uploaded"
	ChangeGroupJoin      = "group_join"
	ChangeGroupLeave     = "group_leave"
	ChangeGroupUpdate    = "group_update"
)

// Drop reasons reported to metrics.
const (
	dropNotReady   = "not_ready"
	dropBufferFull = "buffer_full"
	dropMalformed  = "malformed"
	dropUnknown    = "unknown"
)

// Options controls how raw changes are treated outside Ready.
type Options struct {
	// BufferOutsideReady holds raw changes until the session becomes Ready instead
	// of dropping them.
	BufferOutsideReady bool
	// BufferSize caps the held changes; later ones are dropped.
	BufferSize int
}

// Bridge reads host events and publishes typed events.
type Bridge struct {
	host    host.Host
	machine *status.Machine
	bus     *bus.Bus
	metrics *metrics.Metrics
	logger  *zap.Logger
	opts    Options

	pending []host.Event
}

// New creates a bridge.
func New(h host.Host, machine *status.Machine, b *bus.Bus, opts Options, m *metrics.Metrics, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	return &Bridge{
		host:    h,
		machine: machine,
		bus:     b,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

// Run processes events until the stream closes or ctx ends. A closed stream means
// the host went away and is mirrored as a disconnect.
func (br *Bridge) Run(ctx context.Context) error {
	events := br.host.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if !br.machine.Is(status.Disconnected) {
					br.Handle(host.Event{Type: host.EventDisconnected, Reason: "host event stream closed"})
				}
				return nil
			}
			br.Handle(ev)
		}
	}
}

// Handle processes one host event. Events are not safe to handle concurrently.
func (br *Bridge) Handle(ev host.Event) {
	switch ev.Type {
	case host.EventQR:
		code := stringArg(ev)
		br.logger.Info("pairing code received")
		br.transition(status.Authenticating)
		br.publish(bus.KindQR, QR{Code: code})
	case host.EventAuthenticated:
		br.logger.Info("session authenticated")
		br.transition(status.Authenticating)
		br.publish(bus.KindAuthenticated, Authenticated{Session: ev.Payload})
	case host.EventAuthFailure:
		reason := reasonOf(ev)
		br.logger.Warn("session authentication failed", zap.String("reason", reason))
		// A rejected restore arrives with no qr or authenticated before it.
		if br.machine.Is(status.Initializing) {
			br.transition(status.Authenticating)
		}
		br.transition(status.Failed)
		br.publish(bus.KindAuthFailure, AuthFailure{Reason: reason})
	case host.EventReady:
		br.logger.Info("session ready")
		br.transition(status.Ready)
		br.publish(bus.KindReady, nil)
		br.flush()
	case host.EventDisconnected:
		reason := reasonOf(ev)
		br.logger.Warn("session disconnected", zap.String("reason", reason))
		br.transition(status.Disconnected)
		br.pending = nil
		br.publish(bus.KindDisconnected, Disconnect{Reason: reason})
	case host.EventStateChange:
		state := stringArg(ev)
		br.logger.Info("connection state changed", zap.String("state", state))
		br.publish(bus.KindStateChanged, StateChange{State: state})
	case host.EventBattery:
		var battery model.BatteryStatus
		if err := json.Unmarshal(ev.Payload, &battery); err != nil {
			br.drop(ev, dropMalformed, err)
			return
		}
		br.publish(bus.KindBatteryChanged, battery)
	case host.EventRawChange:
		br.rawChange(ev)
	default:
		br.drop(ev, dropUnknown, nil)
	}
}

func (br *Bridge) transition(to status.State) {
	from := br.machine.Current()
	if from == to {
		return
	}
	if err := br.machine.Transition(to); err != nil {
		br.logger.Warn("ignoring lifecycle transition", zap.Error(err))
	}
}

func (br *Bridge) rawChange(ev host.Event) {
	if br.machine.Is(status.Ready) {
		br.dispatch(ev)
		return
	}
	if !br.opts.BufferOutsideReady {
		br.drop(ev, dropNotReady, nil)
		return
	}
	if len(br.pending) >= br.opts.BufferSize {
		br.drop(ev, dropBufferFull, nil)
		return
	}
	br.pending = append(br.pending, ev)
}

func (br *Bridge) flush() {
	if !br.machine.Is(status.Ready) || len(br.pending) == 0 {
		return
	}
	pending := br.pending
	br.pending = nil
	br.logger.Debug("flushing buffered changes", zap.Int("count", len(pending)))
	for _, ev := range pending {
		br.dispatch(ev)
	}
}

func (br *Bridge) dispatch(ev host.Event) {
	switch ev.Entity {
	case host.EntityMessage:
		br.messageChange(ev)
	case host.EntityGroupNotification:
		br.groupChange(ev)
	case host.EntityChat:
		c, err := model.NewChat(ev.Payload)
		if err != nil {
			br.drop(ev, dropMalformed, err)
			return
		}
		br.publish(bus.KindChatUpdated, c)
	case host.EntityContact:
		c, err := model.NewContact(ev.Payload)
		if err != nil {
			br.drop(ev, dropMalformed, err)
			return
		}
		br.publish(bus.KindContactUpdated, c)
	default:
		br.drop(ev, dropUnknown, nil)
	}
}

func (br *Bridge) messageChange(ev host.Event) {
	msg, err := model.NewMessage(ev.Payload)
	if err != nil {
		br.drop(ev, dropMalformed, err)
		return
	}

	switch ev.Change {
	case ChangeMessage:
		br.publish(bus.KindMessageReceived, msg)
	case ChangeMessageCreate:
		br.publish(bus.KindMessageCreated, msg)
	case ChangeMessageAck:
		ack := msg.Ack
		if !host.IsNull(ev.Extra) {
			var n int
			if err := json.Unmarshal(ev.Extra, &n); err != nil {
				br.drop(ev, dropMalformed, err)
				return
			}
			ack = model.Ack(n)
		}
		br.publish(bus.KindMessageAck, Ack{Message: msg, Ack: ack})
	case ChangeRevokeEveryone:
		rev := Revoke{Message: msg}
		if len(ev.Extra) > 0 && !host.IsNull(ev.Extra) {
			// The original is best effort; a broken one leaves Revoked nil.
			if orig, err := model.NewMessage(ev.Extra); err == nil {
				rev.Revoked = &orig
			} else {
				br.logger.Debug("revoked original unusable", zap.Error(err))
			}
		}
		br.publish(bus.KindMessageRevokeEveryone, rev)
	case ChangeRevokeMe:
		br.publish(bus.KindMessageRevokeMe, msg)
	case ChangeMediaUploaded:
		br.publish(bus.KindMessageMediaUploaded, msg)
	default:
		br.drop(ev, dropUnknown, nil)
	}
}

func (br *Bridge) groupChange(ev host.Event) {
	n, err := model.NewGroupNotification(ev.Payload)
	if err != nil {
		br.drop(ev, dropMalformed, err)
		return
	}

	kind := ""
	switch ev.Change {
	case ChangeGroupJoin:
		kind = bus.KindGroupJoin
	case ChangeGroupLeave:
		kind = bus.KindGroupLeave
	case ChangeGroupUpdate:
		kind = bus.KindGroupUpdate
	case "":
		kind = groupKind(n.Type)
	default:
		br.drop(ev, dropUnknown, nil)
		return
	}
	br.publish(kind, n)
}

// groupKind classifies a notification by subtype when the host did not.
func groupKind(t model.GroupNotificationType) string {
	switch t {
	case model.GroupAdd, model.GroupInvite:
		return bus.KindGroupJoin
	case model.GroupRemove, model.GroupLeave:
		return bus.KindGroupLeave
	}
	return bus.KindGroupUpdate
}

func (br *Bridge) publish(kind string, payload any) {
	br.bus.Publish(bus.Event{Kind: kind, Payload: payload})
	br.metrics.BridgeEvent(kind)
}

func (br *Bridge) drop(ev host.Event, reason string, err error) {
	br.metrics.BridgeDropped(reason)
	fields := []zap.Field{
		zap.String("reason", reason),
		zap.String("type", string(ev.Type)),
		zap.String("entity", ev.Entity),
		zap.String("change", ev.Change),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == dropNotReady {
		br.logger.Debug("dropping event", fields...)
		return
	}
	br.logger.Warn("dropping event", fields...)
}

func reasonOf(ev host.Event) string {
	if ev.Reason != "" {
		return ev.Reason
	}
	return stringArg(ev)
}

// stringArg reads a payload that is a JSON string, or the raw text otherwise.
func stringArg(ev host.Event) string {
	if len(ev.Payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(ev.Payload, &s); err == nil {
		return s
	}
	return string(ev.Payload)
}
