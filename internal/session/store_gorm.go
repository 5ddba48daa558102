package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

// GormStore keeps sessions in the sessions table.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.Session
	err := s.DB.WithContext(ctx).
		Where("session_key = ? AND expires_at > ?", key, time.Now().UTC()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return []byte(row.Data), nil
}

func (s *GormStore) Save(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	row := models.Session{
		Key:       key,
		Data:      string(data),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "expires_at"}),
	}).Create(&row).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("session_key = ?", key).Delete(&models.Session{}).Error
}

// PurgeExpired removes rows past their expiry and reports how many went.
func (s *GormStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", time.Now().UTC()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}
