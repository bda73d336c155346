package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the row layout backing GORMStore: one row per folder/key pair
// holding the JSON document.
type Record struct {
	Folder    string `gorm:"primaryKey;type:varchar(64)"`
	Key       string `gorm:"primaryKey;column:record_key;type:varchar(255)"`
	Data      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the GORM default.
func (Record) TableName() string { return "records" }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMStore is a GORM implementation of Store.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore creates a GORMStore and migrates its table.
func NewGORMStore(db *gorm.DB) (*GORMStore, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate records table: %w", err)
	}
	return &GORMStore{db: db}, nil
}

// Create inserts a new record, failing with ErrAlreadyExists on a taken key.
func (s *GORMStore) Create(ctx context.Context, folder, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", folder, key, err)
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Record{Folder: folder, Key: key, Data: string(data)})
	if res.Error != nil {
		return fmt.Errorf("failed to create %s/%s: %w", folder, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrAlreadyExists)
	}
	return nil
}

// Read loads a record and decodes it into dst.
func (s *GORMStore) Read(ctx context.Context, folder, key string, dst any) error {
	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "folder = ? AND record_key = ?", folder, key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
		}
		return fmt.Errorf("failed to read %s/%s: %w", folder, key, err)
	}
	if err := json.Unmarshal([]byte(rec.Data), dst); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", folder, key, err)
	}
	return nil
}

// Update replaces the document of an existing record.
func (s *GORMStore) Update(ctx context.Context, folder, key string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", folder, key, err)
	}
	res := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("folder = ? AND record_key = ?", folder, key).
		Updates(map[string]any{"data": string(data), "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update %s/%s: %w", folder, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
	}
	return nil
}

// Delete removes a record.
func (s *GORMStore) Delete(ctx context.Context, folder, key string) error {
	res := s.db.WithContext(ctx).Delete(&Record{}, "folder = ? AND record_key = ?", folder, key)
	if res.Error != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", folder, key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s/%s: %w", folder, key, ErrNotFound)
	}
	return nil
}

// List returns every key in folder in ascending order.
func (s *GORMStore) List(ctx context.Context, folder string) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Where("folder = ?", folder).
		Order("record_key").
		Pluck("record_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", folder, err)
	}
	return keys, nil
}

// ListContaining returns the keys in folder that contain substring.
func (s *GORMStore) ListContaining(ctx context.Context, folder, substring string) ([]string, error) {
	keys := []string{}
	err := s.db.WithContext(ctx).
		Model(&Record{}).
		Where(`folder = ? AND record_key LIKE ? ESCAPE '\'`, folder, "%"+likeEscaper.Replace(substring)+"%").
		Order("record_key").
		Pluck("record_key", &keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s containing %q: %w", folder, substring, err)
	}
	return keys, nil
}

// EnsureFolder is a no-op: folders are a column, not a table.
func (s *GORMStore) EnsureFolder(context.Context, string) error {
	return nil
}
