package auth

import (
	"context"
	"errors"

	"github.com/nhanzalone1/echo-app-sub000/internal"
	"github.com/nhanzalone1/echo-app-sub000/internal/storage"
)

// LocalAuthProvider resolves bearer tokens against the user table.
type LocalAuthProvider struct {
	users  storage.UserRepository
	logger internal.Logger
}

func (a *LocalAuthProvider) ValidateTokenLocal(ctx context.Context, token string) (*internal.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	u, err := a.users.GetUserByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		a.logger.Warnf("invalid token presented")
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a *LocalAuthProvider) ValidateTokenRemote(ctx context.Context, token string) (*internal.User, error) {
	a.logger.Warnf("ValidateTokenRemote not implemented in LocalAuthProvider")
	return nil, errors.New("not implemented in LocalAuthProvider")
}

func NewLocalAuthProvider(users storage.UserRepository, logger internal.Logger) *LocalAuthProvider {
	return &LocalAuthProvider{users: users, logger: logger}
}
