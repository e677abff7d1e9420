package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"openfeed/internal/config"
	"openfeed/internal/domain/user"
	"openfeed/internal/repository"
	openfeed_errors "openfeed/pkg/errors"
	"openfeed/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and token lifecycle for the
// identity service. Access tokens are short-lived JWTs; refresh tokens
// are opaque, stored server-side and rotated on every refresh.
type AuthService struct {
	users  repository.UserRepository
	tokens repository.RefreshTokenRepository
	cfg    config.AuthConfig
	log    *logger.Logger
}

func NewAuthService(users repository.UserRepository, tokens repository.RefreshTokenRepository, cfg config.AuthConfig, log *logger.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log}
}

// NewTokenVerifier returns an AuthService that can only parse access
// tokens. Services other than identity use it for request auth without
// touching the user store.
func NewTokenVerifier(cfg config.AuthConfig) *AuthService {
	return &AuthService{cfg: cfg}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthResult struct {
	UserID       uuid.UUID
	Username     string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// AccessTokenClaims is the JWT payload for access tokens.
type AccessTokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)
	if username == "" || email == "" || len(input.Password) < 8 {
		return AuthResult{}, openfeed_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	u := user.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return AuthResult{}, err
	}

	return s.issueTokens(ctx, u)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (AuthResult, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == openfeed_errors.ErrNotFound {
			return AuthResult{}, openfeed_errors.ErrUnauthorized
		}
		return AuthResult{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, openfeed_errors.ErrUnauthorized
	}

	return s.issueTokens(ctx, u)
}

// Refresh rotates the refresh token: the presented token is revoked and
// a fresh pair is issued. An expired or unknown token is unauthorized.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	stored, err := s.tokens.GetByToken(ctx, refreshToken)
	if err != nil {
		if err == openfeed_errors.ErrNotFound {
			return AuthResult{}, openfeed_errors.ErrUnauthorized
		}
		return AuthResult{}, err
	}

	if err := s.tokens.DeleteByToken(ctx, refreshToken); err != nil {
		return AuthResult{}, err
	}
	if time.Now().After(stored.ExpiresAt) {
		return AuthResult{}, openfeed_errors.ErrUnauthorized
	}

	u, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return AuthResult{}, err
	}
	return s.issueTokens(ctx, u)
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.tokens.DeleteByToken(ctx, refreshToken)
}

// ParseAccessToken validates the JWT and returns its claims.
func (s *AuthService) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	if token == "" {
		return nil, openfeed_errors.ErrUnauthorized
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, openfeed_errors.ErrUnauthorized
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, openfeed_errors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueTokens(ctx context.Context, u user.User) (AuthResult, error) {
	now := time.Now()
	claims := AccessTokenClaims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTokenTTL)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return AuthResult{}, err
	}

	refresh, err := opaqueToken()
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.tokens.Create(ctx, &user.RefreshToken{
		ID:        uuid.New(),
		Token:     refresh,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.cfg.RefreshTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		UserID:       u.ID,
		Username:     u.Username,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

func opaqueToken() (string, error) {
	buf := make([]byte, 40)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
