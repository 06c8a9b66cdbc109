package service

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/catalog-system/internal/core/domain"
	"github.com/99minutos/catalog-system/internal/core/entity"
	"github.com/99minutos/catalog-system/internal/core/mapper"
	"github.com/99minutos/catalog-system/internal/core/ports"
)

// AuthService implements registration and login over the user store.
type AuthService struct {
	users     ports.Store[entity.User, int64]
	tx        ports.Transactor
	jwtSecret string
	tokenTTL  time.Duration
	logger    zerolog.Logger
}

func NewAuthService(users ports.Store[entity.User, int64], tx ports.Transactor, jwtSecret string, tokenTTL time.Duration, logger zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if tx == nil {
		tx = ports.NoTx
	}
	return &AuthService{users: users, tx: tx, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, username, password, email, role string) (*domain.User, error) {
	if username == "" || password == "" || role == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	user := &entity.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}

	err = s.tx.WithTx(domain.WithActor(ctx, username), func(ctx context.Context) error {
		existing, err := s.users.FindBy(ctx, "username", username)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return domain.ErrUserExists
		}
		_, err = s.users.Save(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Str("role", role).Msg("user registered")
	return mapper.Map[domain.User](user)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	found, err := s.users.FindBy(ctx, "username", username)
	if err != nil {
		return "", nil, err
	}
	if len(found) == 0 {
		return "", nil, domain.ErrUserNotFound
	}
	user := found[0]

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	out, err := mapper.Map[domain.User](user)
	if err != nil {
		return "", nil, err
	}
	return token, out, nil
}

func (s *AuthService) generateToken(user *entity.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
