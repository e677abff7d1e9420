package services

import (
	"context"
	"encoding/json"
	"strings"

	"openfeed/internal/cache"
	"openfeed/internal/domain/searchdoc"
	"openfeed/internal/events"
	"openfeed/internal/repository"
	openfeed_errors "openfeed/pkg/errors"
	"openfeed/pkg/logger"
)

// SearchService maintains the search projection of posts and serves
// content queries through a read-through cache. The projection is fed
// only by consumed events; the posts service never writes this table.
type SearchService struct {
	repo  repository.SearchRepository
	cache *cache.Store
	log   *logger.Logger
}

func NewSearchService(repo repository.SearchRepository, cacheStore *cache.Store, log *logger.Logger) *SearchService {
	return &SearchService{repo: repo, cache: cacheStore, log: log}
}

// HandlePostCreated upserts the projection row keyed by postId.
// Upserting makes redelivery harmless.
func (s *SearchService) HandlePostCreated(ctx context.Context, env events.Envelope) error {
	evt, err := env.PostCreated()
	if err != nil {
		return err
	}

	doc := searchdoc.Document{
		PostID:    evt.PostID,
		UserID:    evt.UserID,
		Content:   evt.Content,
		CreatedAt: evt.CreatedAt,
	}
	if err := s.repo.Upsert(ctx, &doc); err != nil {
		return err
	}

	s.invalidateResults(ctx)
	return nil
}

// HandlePostDeleted removes the projection row; deleting an absent row
// is a no-op.
func (s *SearchService) HandlePostDeleted(ctx context.Context, env events.Envelope) error {
	evt, err := env.PostDeleted()
	if err != nil {
		return err
	}

	if err := s.repo.DeleteByPostID(ctx, evt.PostID); err != nil {
		return err
	}

	s.invalidateResults(ctx)
	return nil
}

func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]searchdoc.Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, openfeed_errors.ErrInvalidInput
	}

	key := cache.SearchKey(query)
	if data, err := s.cache.Get(ctx, key); err != nil {
		s.log.Errorf("cache get %s: %v", key, err)
	} else if data != nil {
		var docs []searchdoc.Document
		if err := json.Unmarshal(data, &docs); err == nil {
			return docs, nil
		}
	}

	docs, err := s.repo.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.log.Errorf("cache set %s: %v", key, err)
		}
	}
	return docs, nil
}

// invalidateResults drops every cached query result. Consumed events
// mutate this service's own cache namespace only; other services'
// caches are theirs to manage.
func (s *SearchService) invalidateResults(ctx context.Context) {
	if err := s.cache.InvalidatePrefix(ctx, cache.SearchPrefix); err != nil {
		s.log.Errorf("invalidate prefix %s: %v", cache.SearchPrefix, err)
	}
}
