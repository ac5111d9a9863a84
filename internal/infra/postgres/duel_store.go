package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"trivia-duel-service/internal/domain"
)

// DuelStore persists duels and their questions with bun.
type DuelStore struct {
	db *bun.DB
}

func NewDuelStore(db *bun.DB) *DuelStore {
	return &DuelStore{db: db}
}

// CreateDuel inserts the duel and its questions in one transaction.
func (s *DuelStore) CreateDuel(ctx context.Context, duel domain.Duel) error {
	m := newDuelModel(duel)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
			return fmt.Errorf("insert duel: %w", err)
		}
		if len(m.Questions) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&m.Questions).Exec(ctx); err != nil {
			return fmt.Errorf("insert duel questions: %w", err)
		}
		return nil
	})
}

func (s *DuelStore) Duel(ctx context.Context, id string) (domain.Duel, error) {
	m := new(duelModel)
	err := s.db.NewSelect().
		Model(m).
		Relation("Questions", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Order("dq.idx ASC")
		}).
		Where("d.id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	if err != nil {
		return domain.Duel{}, fmt.Errorf("select duel: %w", err)
	}
	return m.domain(), nil
}

func (s *DuelStore) SetScore(ctx context.Context, id string, slot, score int) (bool, error) {
	column := "player1_score"
	if slot == 2 {
		column = "player2_score"
	}
	res, err := s.db.NewUpdate().
		Model((*duelModel)(nil)).
		Set("? = ?", bun.Ident(column), score).
		Where("id = ?", id).
		Where("? IS NULL", bun.Ident(column)).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("set duel score: %w", err)
	}
	return s.applied(ctx, id, res)
}

func (s *DuelStore) MarkFinished(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*duelModel)(nil)).
		Set("finished_at = ?", at).
		Where("id = ?", id).
		Where("finished_at IS NULL").
		Where("player1_score IS NOT NULL").
		Where("player2_score IS NOT NULL").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("finish duel: %w", err)
	}
	return s.applied(ctx, id, res)
}

// applied reports whether a conditional update touched the duel, telling a
// missing duel apart from a condition that no longer holds.
func (s *DuelStore) applied(ctx context.Context, id string, res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}
	exists, err := s.db.NewSelect().Model((*duelModel)(nil)).Where("d.id = ?", id).Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check duel: %w", err)
	}
	if !exists {
		return false, domain.ErrDuelNotFound
	}
	return false, nil
}
