package repository

import (
	"context"
	"errors"

	"openfeed/internal/domain/media"
	openfeed_errors "openfeed/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresMediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &PostgresMediaRepository{db: db}
}

func (r *PostgresMediaRepository) Create(ctx context.Context, m *media.Media) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return openfeed_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMediaRepository) FindByPublicIDs(ctx context.Context, publicIDs []string) ([]media.Media, error) {
	if len(publicIDs) == 0 {
		return nil, nil
	}
	var rows []media.Media
	err := r.db.WithContext(ctx).Where("public_id IN ?", publicIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByID deletes a media row. Deleting an already-absent row is a
// no-op, not an error: the post.deleted cascade re-runs safely.
func (r *PostgresMediaRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&media.Media{}, "id = ?", id).Error
}

func (r *PostgresMediaRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]media.Media, error) {
	var rows []media.Media
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
