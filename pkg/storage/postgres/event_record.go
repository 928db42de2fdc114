package postgres

import "time"

// EventRecord is one broadcast event as pushed to subscribers.
type EventRecord struct {
	ID uint `gorm:"primaryKey"`

	Type    string `gorm:"type:varchar(32);not null;index:idx_event_type_recorded"`
	Payload string `gorm:"type:jsonb;not null"`

	RecordedAt time.Time `gorm:"not null;index:idx_event_type_recorded;index:idx_event_recorded_at"`
}

// TableName overrides the default table name for GORM.
func (EventRecord) TableName() string {
	return "event_record"
}
