package sequence

import (
	"context"
	"errors"

	"github.com/diewo77/devinvoice/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore keeps buckets in the number_sequence_buckets table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) scoped(ctx context.Context, key BucketKey) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.NumberSequenceBucket{}).
		Where("owner_id = ? AND prefix = ? AND year = ?", key.Owner, key.Prefix, key.Year)
}

func (s *GormStore) Load(ctx context.Context, key BucketKey) (int64, bool, error) {
	var b models.NumberSequenceBucket
	err := s.scoped(ctx, key).Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return b.LastIssued, true, nil
}

func (s *GormStore) Insert(ctx context.Context, key BucketKey, last int64) (bool, error) {
	b := models.NumberSequenceBucket{
		OwnerID:    key.Owner,
		Prefix:     key.Prefix,
		Year:       key.Year,
		LastIssued: last,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&b)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) CompareAndSwap(ctx context.Context, key BucketKey, expected, next int64) (bool, error) {
	res := s.scoped(ctx, key).
		Where("last_issued = ?", expected).
		Update("last_issued", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) OwnerHasBuckets(ctx context.Context, owner string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.NumberSequenceBucket{}).
		Where("owner_id = ?", owner).
		Count(&count).Error
	return count > 0, err
}
