package userapp

import (
	"context"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"feedline/internal/adapters/columnstore"
	"feedline/internal/adapters/memory"
	userPort "feedline/internal/ports/user"
)

func newUserService() *UserService {
	repo := columnstore.NewUserRepository(memory.NewStore(columnstore.Schema(0)))
	return NewUserService(repo, []byte("test-secret"), zap.NewNop())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()

	dto, err := svc.Register(ctx, "Ada", "Lovelace", "ada", "0912000000", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, dto.ID)
	require.Equal(t, "ada", dto.Username)

	res, err := svc.Login(ctx, "ada", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(res.Token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	require.Equal(t, dto.ID, claims.Subject)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "Lovelace", "ada", "0912000000", "s3cret")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Other", "Person", "ada", "0912000001", "different")
	require.ErrorIs(t, err, userPort.ErrAlreadyExists)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newUserService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "Lovelace", "ada", "0912000000", "s3cret")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}
