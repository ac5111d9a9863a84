package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"trivia-duel-service/internal/domain"
)

// Broadcaster fans an event out to every connected observer, best-effort.
type Broadcaster interface {
	BroadcastToAll(ctx context.Context, event domain.Event) error
}

// Sequencer issues strictly increasing broadcast sequence numbers.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
}

// ScoreCoordinator persists submitted scores and pushes the refreshed leaderboard.
type ScoreCoordinator struct {
	users       UserRepository
	results     ResultRepository
	board       *LeaderboardService
	broadcaster Broadcaster
	seq         Sequencer
	log         *zap.Logger
	now         func() time.Time
}

func NewScoreCoordinator(users UserRepository, results ResultRepository, board *LeaderboardService, broadcaster Broadcaster, seq Sequencer, logger *zap.Logger) *ScoreCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoreCoordinator{
		users:       users,
		results:     results,
		board:       board,
		broadcaster: broadcaster,
		seq:         seq,
		log:         logger,
		now:         time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (c *ScoreCoordinator) WithClock(now func() time.Time) *ScoreCoordinator {
	c.now = now
	return c
}

// Submit records a casual quiz result for displayName and rebroadcasts the
// period's leaderboard. Once the result is stored, Submit succeeds even if the
// recompute or broadcast fails.
func (c *ScoreCoordinator) Submit(ctx context.Context, displayName string, score int, period domain.Period) (domain.QuizResult, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" || score <= 0 {
		return domain.QuizResult{}, domain.ErrInvalidSubmission
	}
	if _, err := domain.ParsePeriod(string(period)); err != nil {
		return domain.QuizResult{}, err
	}

	user, err := c.resolveUser(ctx, displayName)
	if err != nil {
		return domain.QuizResult{}, err
	}

	result := domain.QuizResult{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Score:       score,
		CompletedAt: c.now().UTC(),
		Mode:        domain.ModeCasual,
		Topic:       "Demo",
		Difficulty:  "N/A",
	}
	if err := c.results.AppendResult(ctx, result); err != nil {
		return domain.QuizResult{}, fmt.Errorf("append result: %w", err)
	}

	if err := c.Publish(ctx, period); err != nil {
		c.log.Warn("leaderboard publish failed after submission",
			zap.String("userId", user.ID),
			zap.String("period", string(period)),
			zap.Error(err))
	}
	return result, nil
}

// Publish recomputes the period's leaderboard and broadcasts it. The sequence
// number is taken before the recompute so a later number never carries an
// older view of the results.
func (c *ScoreCoordinator) Publish(ctx context.Context, period domain.Period) error {
	seq, err := c.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	lb, err := c.board.Snapshot(ctx, period)
	if err != nil {
		return fmt.Errorf("recompute leaderboard: %w", err)
	}
	payload, err := json.Marshal(lb)
	if err != nil {
		return err
	}
	return c.broadcaster.BroadcastToAll(ctx, domain.Event{
		Name:    domain.EventLeaderboardUpdated,
		Scope:   string(lb.Period),
		Seq:     seq,
		Payload: payload,
	})
}

// resolveUser finds the user by display name or creates one. The first
// creator wins; a concurrent loser reads back the winner's user.
func (c *ScoreCoordinator) resolveUser(ctx context.Context, displayName string) (domain.User, error) {
	user, err := c.users.UserByDisplayName(ctx, displayName)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	user = domain.User{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		CreatedAt:   c.now().UTC(),
	}
	err = c.users.CreateUser(ctx, user)
	if errors.Is(err, domain.ErrDisplayNameTaken) {
		return c.users.UserByDisplayName(ctx, displayName)
	}
	if err != nil {
		return domain.User{}, err
	}
	c.log.Info("user created from score submission", zap.String("userId", user.ID))
	return user, nil
}
