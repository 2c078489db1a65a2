// Package sync archives what the session reports on the bus into the store.
package sync

import (
	"context"
	"fmt"
	"io"

	"github.com/matheus3301/wppweb/internal/bridge"
	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/model"
	"github.com/matheus3301/wppweb/internal/store"
	"go.uber.org/zap"
)

// logoutReason is the disconnect reason the host reports after a logout.
const logoutReason = "LOGOUT"

// Archived is the payload of bus.KindArchived.
type Archived struct {
	Kind string
	ID   string
}

// Engine handles idempotent ingestion of session events into the store.
// It subscribes to every bus namespace and ignores what it does not archive.
type Engine struct {
	db     *store.DB
	bus    *bus.Bus
	qr     io.Writer
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates a new sync engine. Pairing codes are rendered to qr when
// it is non-nil.
func NewEngine(db *store.DB, b *bus.Bus, qr io.Writer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:     db,
		bus:    b,
		qr:     qr,
		logger: logger,
	}
}

// Start subscribes to the bus and ingests events until Stop or ctx is done.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	e.done = make(chan struct{})
	ch, unsub := e.bus.Subscribe("", 512)

	go func() {
		defer close(e.done)
		defer unsub()
		for {
			select {
			case evt, ok := <-ch:
				if !ok {
					return
				}
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and waits for the in-flight event.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
}

func (e *Engine) handleEvent(evt bus.Event) {
	var err error
	switch evt.Kind {
	case bus.KindMessageReceived, bus.KindMessageCreated, bus.KindMessageMediaUploaded:
		if msg, ok := evt.Payload.(model.Message); ok {
			err = e.IngestMessage(msg)
		}
	case bus.KindMessageAck:
		if ack, ok := evt.Payload.(bridge.Ack); ok {
			err = e.IngestAck(ack)
		}
	case bus.KindMessageRevokeEveryone:
		if rev, ok := evt.Payload.(bridge.Revoke); ok {
			err = e.IngestRevoke(rev)
		}
	case bus.KindGroupJoin, bus.KindGroupLeave, bus.KindGroupUpdate:
		if n, ok := evt.Payload.(model.GroupNotification); ok {
			err = e.IngestGroupEvent(n)
		}
	case bus.KindChatUpdated:
		if c, ok := evt.Payload.(model.Chat); ok {
			err = e.db.UpsertChat(store.ChatFromModel(c))
		}
	case bus.KindContactUpdated:
		if c, ok := evt.Payload.(model.Contact); ok {
			err = e.db.UpsertContact(store.ContactFromModel(c))
		}
	case bus.KindAuthenticated:
		if auth, ok := evt.Payload.(bridge.Authenticated); ok && len(auth.Session) > 0 {
			err = e.db.SaveCredentials(auth.Session)
			e.logger.Info("session credentials stored")
		}
	case bus.KindAuthFailure:
		e.logger.Warn("authentication failed, forgetting stored credentials", zap.Any("reason", evt.Payload))
		err = e.db.ClearCredentials()
	case bus.KindDisconnected:
		if d, ok := evt.Payload.(bridge.Disconnect); ok && d.Reason == logoutReason {
			e.logger.Info("logged out, forgetting stored credentials")
			err = e.db.ClearCredentials()
		}
	case bus.KindQR:
		if qr, ok := evt.Payload.(bridge.QR); ok {
			e.showQR(qr.Code)
		}
	case bus.KindReady:
		e.logReady()
	}
	if err != nil {
		e.logger.Error("failed to archive event", zap.String("kind", evt.Kind), zap.String("event_id", evt.ID), zap.Error(err))
	}
}

// IngestMessage archives a message (idempotent).
func (e *Engine) IngestMessage(msg model.Message) error {
	m := store.MessageFromModel(msg)
	if err := e.db.UpsertMessage(m); err != nil {
		return fmt.Errorf("ingest message: %w", err)
	}
	e.archived("message", m.ID)
	return nil
}

// IngestHistory archives a page of history in one transaction.
func (e *Engine) IngestHistory(msgs []model.Message) error {
	batch := make([]*store.Message, 0, len(msgs))
	for _, m := range msgs {
		batch = append(batch, store.MessageFromModel(m))
	}
	if err := e.db.UpsertMessages(batch); err != nil {
		return fmt.Errorf("ingest history: %w", err)
	}
	e.logger.Debug("history ingested", zap.Int("messages", len(batch)))
	return nil
}

// IngestAck records a delivery update, archiving the message if it was not yet.
func (e *Engine) IngestAck(ack bridge.Ack) error {
	found, err := e.db.SetAck(ack.Message.ID.String(), int(ack.Ack))
	if err != nil {
		return fmt.Errorf("ingest ack: %w", err)
	}
	if found {
		return nil
	}
	msg := ack.Message
	msg.Ack = ack.Ack
	return e.IngestMessage(msg)
}

// IngestRevoke records a message deleted for everyone.
func (e *Engine) IngestRevoke(rev bridge.Revoke) error {
	id := rev.Message.ID.String()
	found, err := e.db.MarkRevoked(id)
	if err != nil {
		return fmt.Errorf("ingest revoke: %w", err)
	}
	if found {
		e.archived("revoke", id)
		return nil
	}
	m := store.MessageFromModel(rev.Message)
	m.Revoked = true
	m.Body = ""
	if err := e.db.UpsertMessage(m); err != nil {
		return fmt.Errorf("ingest revoke: %w", err)
	}
	e.archived("revoke", id)
	return nil
}

// IngestGroupEvent archives a group notification (idempotent).
func (e *Engine) IngestGroupEvent(n model.GroupNotification) error {
	ge := store.GroupEventFromModel(n)
	if err := e.db.InsertGroupEvent(ge); err != nil {
		return fmt.Errorf("ingest group event: %w", err)
	}
	e.archived("group_event", ge.ID)
	return nil
}

func (e *Engine) archived(kind, id string) {
	e.bus.Publish(bus.Event{
		Kind:    bus.KindArchived,
		Payload: Archived{Kind: kind, ID: id},
	})
}

func (e *Engine) showQR(code string) {
	e.logger.Info("scan the pairing code with WhatsApp", zap.String("code", code))
	if e.qr == nil {
		return
	}
	if _, err := io.WriteString(e.qr, "\n  Scan this QR code with WhatsApp:\n\n"+renderQR(code)+"\n"); err != nil {
		e.logger.Warn("failed to render pairing code", zap.Error(err))
	}
}

func (e *Engine) logReady() {
	chats, err := e.db.ChatCount()
	if err != nil {
		e.logger.Warn("failed to count archived chats", zap.Error(err))
		return
	}
	msgs, err := e.db.MessageCount()
	if err != nil {
		e.logger.Warn("failed to count archived messages", zap.Error(err))
		return
	}
	e.logger.Info("session ready", zap.Int64("archived_chats", chats), zap.Int64("archived_messages", msgs))
}
