package userapp

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	userEntity "feedline/internal/core/user"
	userPort "feedline/internal/ports/user"
)

var ErrInvalidCredentials = errors.New("user: invalid credentials")

const tokenTTL = 24 * time.Hour

type UserService struct {
	Users  userPort.UserRepository
	jwtKey []byte
	Logger *zap.Logger
}

func NewUserService(users userPort.UserRepository, jwtKey []byte, logger *zap.Logger) *UserService {
	return &UserService{Users: users, jwtKey: jwtKey, Logger: logger}
}

func (s *UserService) Register(ctx context.Context, name, family, username, mobile, password string) (*userPort.UserDTO, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &userEntity.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     name,
		Family:   family,
		Username: username,
		Mobile:   mobile,
		Password: string(hash),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return &userPort.UserDTO{
		ID:       u.ID.String(),
		Name:     u.Name,
		Family:   u.Family,
		Username: u.Username,
		Mobile:   u.Mobile,
	}, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*userPort.LoginResponse, error) {
	u, err := s.Users.FindByUsername(ctx, username)
	if err != nil {
		s.Logger.Warn("login: user lookup failed", zap.String("username", username), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(tokenTTL)
	claims := &jwt.StandardClaims{
		Subject:   u.ID.String(),
		Issuer:    "feedline",
		ExpiresAt: expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		return nil, err
	}
	return &userPort.LoginResponse{Token: token, ExpiresAt: expiresAt.Unix()}, nil
}
