package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pocketledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps pairs in the settings table of the local database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore returns a Store over db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var setting models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return setting.Value, true, nil
}

// Set implements Store.
func (s *GormStore) Set(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// Delete implements Store. Deleting a missing key is not an error.
func (s *GormStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&models.Setting{}).Error; err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

// List implements Store.
func (s *GormStore) List(ctx context.Context, prefix string) (map[string]string, error) {
	var settings []models.Setting
	q := s.db.WithContext(ctx)
	if prefix != "" {
		q = q.Where("key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%")
	}
	if err := q.Order("key ASC").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}

	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
