package auth

import (
	"context"
	"errors"

	"github.com/nhanzalone1/echo-app-sub000/internal"
)

var ErrInvalidToken = errors.New("invalid token")

type Provider interface {
	ValidateTokenLocal(ctx context.Context, token string) (*internal.User, error)
	ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error)
}
