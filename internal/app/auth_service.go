package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"trivia-duel-service/internal/domain"
)

// UserRepository stores identities. CreateUser reports ErrDisplayNameTaken or
// ErrEmailTaken on conflicts; lookups report ErrUserNotFound.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) error
	UserByID(ctx context.Context, id string) (domain.User, error)
	UserByDisplayName(ctx context.Context, displayName string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	// UsersByID returns the users that exist among ids, keyed by id.
	UsersByID(ctx context.Context, ids []string) (map[string]domain.User, error)
}

// AuthService registers and authenticates users.
type AuthService struct {
	users UserRepository
	log   *zap.Logger
	cost  int
	now   func() time.Time
}

func NewAuthService(users UserRepository, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, log: logger, cost: bcrypt.DefaultCost, now: time.Now}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func (s *AuthService) Register(ctx context.Context, email, password, displayName string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || password == "" || displayName == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if _, err := s.users.UserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           uuid.NewString(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", zap.String("userId", user.ID))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if user.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	return user, nil
}

type currentUserKey struct{}

// WithCurrentUser attaches the signed-in user to ctx.
func WithCurrentUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, currentUserKey{}, user)
}

// CurrentUser returns the user attached by WithCurrentUser.
func CurrentUser(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(currentUserKey{}).(domain.User)
	return user, ok
}
