package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"trivia-duel-service/internal/domain"
)

const uniqueViolation = "23505"

// UserStore persists users with bun.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.db.NewInsert().Model(newUserModel(user)).Exec(ctx)
	if err == nil {
		return nil
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation {
		switch pgErr.Field('n') {
		case "users_display_name_unique":
			return domain.ErrDisplayNameTaken
		case "users_email_unique":
			return domain.ErrEmailTaken
		}
	}
	return fmt.Errorf("insert user: %w", err)
}

func (s *UserStore) UserByID(ctx context.Context, id string) (domain.User, error) {
	return s.findOne(ctx, "u.id = ?", id)
}

func (s *UserStore) UserByDisplayName(ctx context.Context, displayName string) (domain.User, error) {
	return s.findOne(ctx, "u.display_name = ?", displayName)
}

func (s *UserStore) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.findOne(ctx, "u.email = ?", email)
}

func (s *UserStore) UsersByID(ctx context.Context, ids []string) (map[string]domain.User, error) {
	out := make(map[string]domain.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []userModel
	if err := s.db.NewSelect().Model(&models).Where("u.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	for i := range models {
		out[models[i].ID] = models[i].domain()
	}
	return out, nil
}

func (s *UserStore) findOne(ctx context.Context, where string, arg any) (domain.User, error) {
	m := new(userModel)
	err := s.db.NewSelect().Model(m).Where(where, arg).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return m.domain(), nil
}
