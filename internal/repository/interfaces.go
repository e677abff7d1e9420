// Package repository contains the persistence layer. Each service
// exclusively owns its own tables; no service writes another's store.
package repository

import (
	"context"
	"time"

	"openfeed/internal/domain/media"
	"openfeed/internal/domain/post"
	"openfeed/internal/domain/searchdoc"
	"openfeed/internal/domain/user"

	"github.com/google/uuid"
)

// PostRepository is the posts service's primary store.
type PostRepository interface {
	Create(ctx context.Context, p *post.Post) error
	GetByID(ctx context.Context, id uuid.UUID) (post.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page, limit int) ([]post.Post, error)
	Count(ctx context.Context) (int64, error)
}

// MediaRepository is the media service's primary store.
type MediaRepository interface {
	Create(ctx context.Context, m *media.Media) error
	FindByPublicIDs(ctx context.Context, publicIDs []string) ([]media.Media, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]media.Media, error)
}

// SearchRepository owns the search service's projection table.
type SearchRepository interface {
	// Upsert creates or refreshes the projection row keyed by postID,
	// so redelivered post.created events never duplicate rows.
	Upsert(ctx context.Context, doc *searchdoc.Document) error
	DeleteByPostID(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, limit int) ([]searchdoc.Document, error)
}

// UserRepository is the identity service's user store.
type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

// RefreshTokenRepository stores opaque refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, t *user.RefreshToken) error
	GetByToken(ctx context.Context, token string) (user.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
