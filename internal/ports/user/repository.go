package user

import (
	"context"
	"errors"

	"feedline/internal/core/user"
)

var ErrAlreadyExists = errors.New("user: username already taken")

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	FindByUsername(ctx context.Context, username string) (*user.User, error)
}

type UserDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Family   string `json:"family"`
	Username string `json:"username"`
	Mobile   string `json:"mobile"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}
