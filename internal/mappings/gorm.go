package mappings

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"coursebridge/internal/models"
)

// DBBackend keeps store images as rows of the mapping_entries table.
type DBBackend struct {
	db *gorm.DB
}

func NewDBBackend(db *gorm.DB) *DBBackend {
	return &DBBackend{db: db}
}

func (b *DBBackend) Load(ctx context.Context, name string) (*Image, error) {
	var rows []models.MappingEntry
	if err := b.db.WithContext(ctx).
		Where("store = ?", name).
		Order("position asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	img := NewImage()
	for _, row := range rows {
		if !json.Valid([]byte(row.Value)) {
			return nil, fmt.Errorf("load %s: invalid value for key %q", name, row.Key)
		}
		img.Set(row.Key, json.RawMessage(row.Value))
	}
	return img, nil
}

// Save replaces every row of the store in a single transaction.
func (b *DBBackend) Save(ctx context.Context, name string, img *Image) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store = ?", name).Delete(&models.MappingEntry{}).Error; err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}

		keys := img.Keys()
		if len(keys) == 0 {
			return nil
		}

		rows := make([]models.MappingEntry, 0, len(keys))
		for i, key := range keys {
			raw, _ := img.Get(key)
			rows = append(rows, models.MappingEntry{
				Store:    name,
				Key:      key,
				Value:    string(raw),
				Position: i,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	})
}
