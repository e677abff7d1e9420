package repository

import (
	"context"

	"openfeed/internal/domain/searchdoc"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresSearchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &PostgresSearchRepository{db: db}
}

// Upsert inserts the projection row or refreshes it when the same
// postId arrives again. Redelivery of post.created is expected with
// at-least-once delivery, so this must not create duplicates.
func (r *PostgresSearchRepository) Upsert(ctx context.Context, doc *searchdoc.Document) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "content", "created_at"}),
		}).
		Create(doc).Error
}

// DeleteByPostID removes the projection row. Absent rows are a no-op.
func (r *PostgresSearchRepository) DeleteByPostID(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Delete(&searchdoc.Document{}, "post_id = ?", postID).Error
}

func (r *PostgresSearchRepository) Search(ctx context.Context, query string, limit int) ([]searchdoc.Document, error) {
	if limit <= 0 {
		limit = 25
	}
	var docs []searchdoc.Document
	err := r.db.WithContext(ctx).
		Where("content ILIKE ?", "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return docs, nil
}
