package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MappingEntry is one key of a mapping store image. Position preserves the
// insertion order of the key within its store.
type MappingEntry struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primary_key"`
	Store     string    `json:"store" gorm:"not null;uniqueIndex:ux_mapping_entries_store_key,priority:1"`
	Key       string    `json:"key" gorm:"column:entry_key;not null;uniqueIndex:ux_mapping_entries_store_key,priority:2"`
	Value     string    `json:"value" gorm:"type:text;not null"`
	Position  int       `json:"position" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *MappingEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
