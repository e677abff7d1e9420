package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"openfeed/internal/cache"
	"openfeed/internal/domain/post"
	"openfeed/internal/events"
	"openfeed/internal/repository"
	openfeed_errors "openfeed/pkg/errors"
	"openfeed/pkg/logger"

	"github.com/google/uuid"
)

// EventPublisher is the broker-facing side of a write path. The
// concrete implementation is broker.Publisher; tests substitute a fake.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}

// PostService owns the posts table and the post read/write paths.
// Writes publish a domain event and invalidate the service's own cache
// namespace; a publish failure is logged and swallowed because the
// primary write has already committed (the caller still sees success).
type PostService struct {
	repo      repository.PostRepository
	cache     *cache.Store
	publisher EventPublisher
	log       *logger.Logger
}

func NewPostService(repo repository.PostRepository, cacheStore *cache.Store, publisher EventPublisher, log *logger.Logger) *PostService {
	return &PostService{repo: repo, cache: cacheStore, publisher: publisher, log: log}
}

type CreatePostInput struct {
	UserID   uuid.UUID
	Content  string
	MediaIDs []string
}

// PostListing is the paginated read model; it is also what gets cached
// under posts:<page>:<limit>.
type PostListing struct {
	Posts      []post.Post `json:"posts"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalCount int64       `json:"totalCount"`
	TotalPages int64       `json:"totalPages"`
}

func (s *PostService) Create(ctx context.Context, input CreatePostInput) (post.Post, error) {
	if input.UserID == uuid.Nil || strings.TrimSpace(input.Content) == "" {
		return post.Post{}, openfeed_errors.ErrInvalidInput
	}

	now := time.Now().UTC()
	p := post.Post{
		ID:        uuid.New(),
		UserID:    input.UserID,
		Content:   input.Content,
		MediaIDs:  input.MediaIDs,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.MediaIDs == nil {
		p.MediaIDs = []string{}
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		return post.Post{}, err
	}

	if err := s.publisher.Publish(ctx, events.EventTypePostCreated, events.PostCreated{
		PostID:    p.ID.String(),
		UserID:    p.UserID.String(),
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}); err != nil {
		s.log.Errorf("publish %s for post %s: %v", events.EventTypePostCreated, p.ID, err)
	}

	s.invalidatePost(ctx, p.ID.String())
	return p, nil
}

func (s *PostService) Get(ctx context.Context, id uuid.UUID) (post.Post, error) {
	key := cache.PostKey(id.String())

	if data, err := s.cache.Get(ctx, key); err != nil {
		s.log.Errorf("cache get %s: %v", key, err)
	} else if data != nil {
		var p post.Post
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return post.Post{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.log.Errorf("cache set %s: %v", key, err)
		}
	}
	return p, nil
}

func (s *PostService) List(ctx context.Context, page, limit int) (PostListing, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	key := cache.PostsPageKey(page, limit)

	if data, err := s.cache.Get(ctx, key); err != nil {
		s.log.Errorf("cache get %s: %v", key, err)
	} else if data != nil {
		var listing PostListing
		if err := json.Unmarshal(data, &listing); err == nil {
			return listing, nil
		}
	}

	posts, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return PostListing{}, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return PostListing{}, err
	}

	listing := PostListing{
		Posts:      posts,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
	}

	if data, err := json.Marshal(listing); err == nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.log.Errorf("cache set %s: %v", key, err)
		}
	}
	return listing, nil
}

// Delete removes the requester's post and announces the deletion with
// the media IDs it referenced, so the media service can cascade.
func (s *PostService) Delete(ctx context.Context, id, requesterID uuid.UUID) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != requesterID {
		return openfeed_errors.ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, events.EventTypePostDeleted, events.PostDeleted{
		PostID:   p.ID.String(),
		UserID:   p.UserID.String(),
		MediaIDs: p.MediaIDs,
	}); err != nil {
		s.log.Errorf("publish %s for post %s: %v", events.EventTypePostDeleted, p.ID, err)
	}

	s.invalidatePost(ctx, id.String())
	return nil
}

// invalidatePost drops the single-item key and every cached listing
// page. Any page may contain or omit the mutated post, so the whole
// listing namespace goes, trading hit-rate for correctness.
func (s *PostService) invalidatePost(ctx context.Context, postID string) {
	if err := s.cache.Invalidate(ctx, cache.PostKey(postID)); err != nil {
		s.log.Errorf("invalidate %s: %v", cache.PostKey(postID), err)
	}
	if err := s.cache.InvalidatePrefix(ctx, cache.PostsPrefix); err != nil {
		s.log.Errorf("invalidate prefix %s: %v", cache.PostsPrefix, err)
	}
}
