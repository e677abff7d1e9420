package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"openfeed/internal/cache"
	"openfeed/internal/domain/searchdoc"
	"openfeed/internal/events"
	"openfeed/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearchRepo struct {
	mu          sync.Mutex
	docs        map[string]searchdoc.Document
	searchCalls int
}

func newFakeSearchRepo() *fakeSearchRepo {
	return &fakeSearchRepo{docs: make(map[string]searchdoc.Document)}
}

func (r *fakeSearchRepo) Upsert(ctx context.Context, doc *searchdoc.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.PostID] = *doc
	return nil
}

func (r *fakeSearchRepo) DeleteByPostID(ctx context.Context, postID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, postID)
	return nil
}

func (r *fakeSearchRepo) Search(ctx context.Context, query string, limit int) ([]searchdoc.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searchCalls++
	var out []searchdoc.Document
	for _, d := range r.docs {
		if strings.Contains(strings.ToLower(d.Content), strings.ToLower(query)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func newSearchFixture(t *testing.T) (*SearchService, *fakeSearchRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewStore(client, cache.Config{TTL: 300 * time.Second})
	repo := newFakeSearchRepo()
	return NewSearchService(repo, store, logger.New(logger.DevelopmentMode)), repo
}

func envelope(t *testing.T, kind string, payload interface{}) events.Envelope {
	t.Helper()
	data, err := events.Encode("evt", kind, time.Now(), payload)
	require.NoError(t, err)
	env, err := events.Decode(data)
	require.NoError(t, err)
	return env
}

func TestPostCreatedProjectionIsSearchable(t *testing.T) {
	svc, _ := newSearchFixture(t)
	ctx := context.Background()

	env := envelope(t, events.EventTypePostCreated, events.PostCreated{
		PostID:    "p1",
		UserID:    "u1",
		Content:   "hi",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, svc.HandlePostCreated(ctx, env))

	docs, err := svc.Search(ctx, "hi", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "p1", docs[0].PostID)
}

func TestPostCreatedIsIdempotent(t *testing.T) {
	svc, repo := newSearchFixture(t)
	ctx := context.Background()

	env := envelope(t, events.EventTypePostCreated, events.PostCreated{
		PostID: "p1", UserID: "u1", Content: "hello", CreatedAt: time.Now().UTC(),
	})

	require.NoError(t, svc.HandlePostCreated(ctx, env))
	require.NoError(t, svc.HandlePostCreated(ctx, env))

	assert.Len(t, repo.docs, 1)
}

func TestPostDeletedIsIdempotent(t *testing.T) {
	svc, repo := newSearchFixture(t)
	ctx := context.Background()

	created := envelope(t, events.EventTypePostCreated, events.PostCreated{
		PostID: "p1", UserID: "u1", Content: "bye", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, svc.HandlePostCreated(ctx, created))

	deleted := envelope(t, events.EventTypePostDeleted, events.PostDeleted{PostID: "p1", UserID: "u1"})
	require.NoError(t, svc.HandlePostDeleted(ctx, deleted))
	require.NoError(t, svc.HandlePostDeleted(ctx, deleted))

	assert.Empty(t, repo.docs)
}

func TestConsumedEventInvalidatesCachedResults(t *testing.T) {
	svc, repo := newSearchFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.HandlePostCreated(ctx, envelope(t, events.EventTypePostCreated, events.PostCreated{
		PostID: "p1", UserID: "u1", Content: "coffee", CreatedAt: time.Now().UTC(),
	})))

	_, err := svc.Search(ctx, "coffee", 10)
	require.NoError(t, err)
	callsAfterWarm := repo.searchCalls

	// Cache hit.
	_, err = svc.Search(ctx, "coffee", 10)
	require.NoError(t, err)
	assert.Equal(t, callsAfterWarm, repo.searchCalls)

	// A consumed event invalidates the namespace; next query re-reads.
	require.NoError(t, svc.HandlePostCreated(ctx, envelope(t, events.EventTypePostCreated, events.PostCreated{
		PostID: "p2", UserID: "u2", Content: "more coffee", CreatedAt: time.Now().UTC(),
	})))
	docs, err := svc.Search(ctx, "coffee", 10)
	require.NoError(t, err)
	assert.Equal(t, callsAfterWarm+1, repo.searchCalls)
	assert.Len(t, docs, 2)
}
