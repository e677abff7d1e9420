package services

import (
	"context"
	"fmt"
	"time"

	"openfeed/internal/domain/media"
	"openfeed/internal/events"
	"openfeed/internal/repository"
	"openfeed/internal/storage"
	openfeed_errors "openfeed/pkg/errors"
	"openfeed/pkg/logger"

	"github.com/google/uuid"
)

const maxUploadBytes = 25 << 20

// MediaService owns the media table and the external object store, and
// consumes post.deleted to cascade-delete the objects a post referenced.
type MediaService struct {
	repo  repository.MediaRepository
	store storage.ObjectStore
	log   *logger.Logger
}

func NewMediaService(repo repository.MediaRepository, store storage.ObjectStore, log *logger.Logger) *MediaService {
	return &MediaService{repo: repo, store: store, log: log}
}

type UploadInput struct {
	UserID      uuid.UUID
	FileName    string
	ContentType string
	Data        []byte
}

// Upload stores the file content-addressed and records it. Re-uploading
// identical content returns the existing record instead of erroring.
func (s *MediaService) Upload(ctx context.Context, input UploadInput) (media.Media, error) {
	if input.UserID == uuid.Nil || input.FileName == "" || len(input.Data) == 0 {
		return media.Media{}, openfeed_errors.ErrInvalidInput
	}
	if len(input.Data) > maxUploadBytes {
		return media.Media{}, openfeed_errors.ErrTooLarge
	}

	key := storage.ObjectKey(input.Data)
	if err := s.store.Put(ctx, key, input.ContentType, input.Data); err != nil {
		return media.Media{}, fmt.Errorf("upload object %s: %w", key, err)
	}

	m := media.Media{
		ID:           uuid.New(),
		PublicID:     key,
		OriginalName: input.FileName,
		MimeType:     input.ContentType,
		URL:          s.store.FileURL(key),
		UserID:       input.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.repo.Create(ctx, &m)
	if err == openfeed_errors.ErrAlreadyExists {
		existing, findErr := s.repo.FindByPublicIDs(ctx, []string{key})
		if findErr == nil && len(existing) == 1 {
			return existing[0], nil
		}
		return media.Media{}, err
	}
	if err != nil {
		return media.Media{}, err
	}
	return m, nil
}

func (s *MediaService) ListByUser(ctx context.Context, userID uuid.UUID) ([]media.Media, error) {
	return s.repo.ListByUser(ctx, userID)
}

// HandlePostDeleted deletes every external object the post referenced
// and its local record. Each step is keyed by the stable publicId, so a
// partial failure is retried from the top without harm: deleting an
// absent object or row is a no-op.
func (s *MediaService) HandlePostDeleted(ctx context.Context, env events.Envelope) error {
	evt, err := env.PostDeleted()
	if err != nil {
		return err
	}

	rows, err := s.repo.FindByPublicIDs(ctx, evt.MediaIDs)
	if err != nil {
		return fmt.Errorf("find media for post %s: %w", evt.PostID, err)
	}

	for _, m := range rows {
		if err := s.store.Delete(ctx, m.PublicID); err != nil {
			return fmt.Errorf("delete object %s: %w", m.PublicID, err)
		}
		if err := s.repo.DeleteByID(ctx, m.ID); err != nil {
			return fmt.Errorf("delete media row %s: %w", m.ID, err)
		}
		s.log.Infof("deleted media %s for deleted post %s", m.PublicID, evt.PostID)
	}
	return nil
}
