package daemon

import (
	"context"

	"github.com/matheus3301/wppweb/internal/bus"
	"github.com/matheus3301/wppweb/internal/history"
	intsync "github.com/matheus3301/wppweb/internal/sync"
	"github.com/matheus3301/wppweb/internal/wa"
	"go.uber.org/zap"
)

// backfill archives the last limit messages of every chat each time ready
// fires, until ctx ends.
func backfill(ctx context.Context, ready <-chan bus.Event, client *wa.Client, engine *intsync.Engine, limit int, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ready:
			if !ok {
				return
			}
			backfillOnce(ctx, client, engine, limit, logger)
		}
	}
}

func backfillOnce(ctx context.Context, client *wa.Client, engine *intsync.Engine, limit int, logger *zap.Logger) {
	chats, err := client.GetChats(ctx)
	if err != nil {
		logger.Warn("backfill: list chats", zap.Error(err))
		return
	}
	total := 0
	for _, chat := range chats {
		msgs, err := client.FetchMessages(ctx, chat.ID, history.Options{Limit: limit})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("backfill: fetch messages", zap.String("chat", chat.ID.String()), zap.Error(err))
			continue
		}
		if err := engine.IngestHistory(msgs); err != nil {
			logger.Error("backfill: archive messages", zap.String("chat", chat.ID.String()), zap.Error(err))
			continue
		}
		total += len(msgs)
	}
	logger.Info("backfill complete", zap.Int("chats", len(chats)), zap.Int("messages", total))
}
