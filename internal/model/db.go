package model

import "time"

// LocalEntry is a namespaced value in the local durable store.
type LocalEntry struct {
	Key       string `gorm:"primaryKey;size:128;not null"`
	Value     string `gorm:"type:text;not null"` // json document
	UpdatedAt time.Time
}
