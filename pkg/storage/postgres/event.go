package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrMissingType = errors.New("event has no type")

func (p *PostgresClient) InsertEvent(ctx context.Context, record *EventRecord) error {
	if err := p.DB.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("insert %s event: %w", record.Type, err)
	}
	return nil
}

// ListEvents returns the newest events first. An empty eventType matches all.
func (p *PostgresClient) ListEvents(ctx context.Context, eventType string, limit int) ([]EventRecord, error) {
	q := p.DB.WithContext(ctx).Order("recorded_at DESC").Order("id DESC")
	if eventType != "" {
		q = q.Where("type = ?", eventType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var records []EventRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteOldEvents prunes events recorded before the cutoff and reports how
// many rows were removed.
func (p *PostgresClient) DeleteOldEvents(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("recorded_at < ?", before).
		Delete(&EventRecord{})
	return tx.RowsAffected, tx.Error
}

// ToEventRecord converts an encoded event into an EventRecord for DB insertion.
func ToEventRecord(msg []byte, at time.Time) (*EventRecord, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &meta); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if meta.Type == "" {
		return nil, ErrMissingType
	}

	return &EventRecord{
		Type:       meta.Type,
		Payload:    string(msg),
		RecordedAt: at.UTC(),
	}, nil
}
