package searchdoc

import (
	"time"

	"github.com/google/uuid"
)

// Document is the search service's denormalized projection of a post.
// It is created only by consuming post.created and deleted only by
// consuming post.deleted; the search service exclusively owns this
// table. PostID is the join key back to the source entity.
type Document struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	PostID    string    `gorm:"uniqueIndex;not null" json:"postId"`
	UserID    string    `gorm:"not null" json:"userId"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Document) TableName() string {
	return "search_documents"
}
