package postgres

import (
	"context"
	"errors"
	"time"

	"bltp/internal/hub"

	"go.uber.org/zap"
)

// EventWriter persists a single event record.
type EventWriter interface {
	InsertEvent(ctx context.Context, record *EventRecord) error
}

// NewJournal returns a hub sink that writes every broadcast event to w on a
// background worker. Closing the sink drains pending writes.
func NewJournal(w EventWriter, buffer int, logger *zap.Logger) *hub.AsyncSink {
	return hub.NewAsyncSink("postgres-journal", buffer, func(msg []byte) {
		rec, err := ToEventRecord(msg, time.Now())
		if err != nil {
			if !errors.Is(err, ErrMissingType) {
				logger.Warn("journal: skipping undecodable event", zap.Error(err))
			}
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.InsertEvent(ctx, rec); err != nil {
			logger.Warn("journal: insert failed", zap.String("type", rec.Type), zap.Error(err))
		}
	}, logger)
}
