package session

import "time"

// SessionSlot is one row of the key-value table holding persisted session records.
type SessionSlot struct {
	Key       string    `gorm:"column:slot_key;primaryKey;size:128"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SessionSlot) TableName() string {
	return "session_slots"
}
