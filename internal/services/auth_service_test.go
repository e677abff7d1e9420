package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"openfeed/internal/config"
	"openfeed/internal/domain/user"
	openfeed_errors "openfeed/pkg/errors"
	"openfeed/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]user.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return openfeed_errors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, openfeed_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, openfeed_errors.ErrNotFound
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]user.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]user.RefreshToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, t *user.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Token] = *t
	return nil
}

func (r *fakeTokenRepo) GetByToken(ctx context.Context, token string) (user.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return user.RefreshToken{}, openfeed_errors.ErrNotFound
	}
	return t, nil
}

func (r *fakeTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, token)
			n++
		}
	}
	return n, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	cfg := config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
	return NewAuthService(users, tokens, cfg, logger.New(logger.DevelopmentMode)), users, tokens
}

func TestRegisterIssuesParsableAccessToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	res, err := svc.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AccessToken)
	require.NotEmpty(t, res.RefreshToken)

	claims, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.UserID.String(), claims.Subject)
	assert.Equal(t, "alice", claims.Username)
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "bob", Email: "bob@example.com", Password: "longenough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "bob", Email: "other@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, openfeed_errors.ErrAlreadyExists)
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "rightpassword"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "carol", "wrongpassword")
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "dave", Email: "dave@example.com", Password: "longenough"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, refreshed.RefreshToken)

	// The old token was revoked by the rotation.
	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)
}

func TestExpiredRefreshTokenIsUnauthorized(t *testing.T) {
	svc, _, tokens := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "erin", Email: "erin@example.com", Password: "longenough"})
	require.NoError(t, err)

	stored := tokens.tokens[res.RefreshToken]
	stored.ExpiresAt = time.Now().Add(-time.Hour)
	tokens.tokens[res.RefreshToken] = stored

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Username: "frank", Email: "frank@example.com", Password: "longenough"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.RefreshToken))

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)
}

func TestParseAccessTokenRejectsTampering(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.ParseAccessToken("")
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)

	_, err = svc.ParseAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, openfeed_errors.ErrUnauthorized)
}
