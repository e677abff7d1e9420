package services

import (
	"context"
	"errors"

	openfeed_errors "openfeed/pkg/errors"

	"github.com/google/uuid"
)

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, openfeed_errors.ErrInvalidInput):
		return 400
	case errors.Is(err, openfeed_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, openfeed_errors.ErrForbidden):
		return 403
	case errors.Is(err, openfeed_errors.ErrNotFound):
		return 404
	case errors.Is(err, openfeed_errors.ErrAlreadyExists), errors.Is(err, openfeed_errors.ErrConflict):
		return 409
	case errors.Is(err, openfeed_errors.ErrTooLarge):
		return 413
	case errors.Is(err, openfeed_errors.ErrRateLimited):
		return 429
	default:
		return 500
	}
}

type ctxKey string

var userIDKey ctxKey = "user_id"
var usernameKey ctxKey = "username"

func WithUserContext(ctx context.Context, userID uuid.UUID, username string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, usernameKey, username)
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

func UsernameFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey).(string)
	return name, ok
}
