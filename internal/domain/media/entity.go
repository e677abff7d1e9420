package media

import (
	"time"

	"github.com/google/uuid"
)

// Media represents the media table. PublicID is the content-addressed
// object key in external storage; the post.deleted cascade deletes by
// it, so it must stay stable for the row's lifetime.
type Media struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()" json:"id"`
	PublicID     string    `gorm:"uniqueIndex;not null" json:"publicId"`
	OriginalName string    `gorm:"not null" json:"originalName"`
	MimeType     string    `gorm:"not null" json:"mimeType"`
	URL          string    `gorm:"not null" json:"url"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	CreatedAt    time.Time `gorm:"default:now()" json:"createdAt"`
}

func (Media) TableName() string {
	return "media"
}
