package post

import (
	"time"

	"github.com/google/uuid"
)

// Post represents the posts table. ID is globally unique and stable
// across services; per-service projections join on it.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Content   string    `gorm:"not null" json:"content"`
	MediaIDs  []string  `gorm:"serializer:json" json:"mediaIds"`
	CreatedAt time.Time `gorm:"default:now();index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updatedAt"`
}

func (Post) TableName() string {
	return "posts"
}
