package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"trivia-duel-service/internal/domain"
)

// DuelRepository persists duels together with their question sets.
type DuelRepository interface {
	// CreateDuel stores the duel and all of its questions atomically.
	CreateDuel(ctx context.Context, duel domain.Duel) error
	Duel(ctx context.Context, id string) (domain.Duel, error)
	// SetScore writes the slot's score only if the slot is still empty and
	// reports whether it did.
	SetScore(ctx context.Context, id string, slot, score int) (bool, error)
	// MarkFinished stamps finishedAt only if both scores are set and the duel
	// is not finished yet, and reports whether it did.
	MarkFinished(ctx context.Context, id string, at time.Time) (bool, error)
}

// DuelService owns duel creation and per-player scoring.
type DuelService struct {
	duels     DuelRepository
	users     UserRepository
	results   ResultRepository
	generator QuestionGenerator
	log       *zap.Logger
	now       func() time.Time
}

func NewDuelService(duels DuelRepository, users UserRepository, results ResultRepository, generator QuestionGenerator, logger *zap.Logger) *DuelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuelService{
		duels:     duels,
		users:     users,
		results:   results,
		generator: generator,
		log:       logger,
		now:       time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *DuelService) WithClock(now func() time.Time) *DuelService {
	s.now = now
	return s
}

// CreateDuel generates one shared question set and persists it with the duel.
// The duel keeps however many questions the generator produced.
func (s *DuelService) CreateDuel(ctx context.Context, player1ID, player2ID, topic, difficulty string, questionCount int) (domain.Duel, error) {
	if questionCount < 1 {
		return domain.Duel{}, domain.ErrInvalidQuestionCount
	}
	player1ID = strings.TrimSpace(player1ID)
	player2ID = strings.TrimSpace(player2ID)
	if player1ID == "" || player2ID == "" || player1ID == player2ID {
		return domain.Duel{}, domain.ErrInvalidPlayers
	}
	for _, id := range []string{player1ID, player2ID} {
		if _, err := s.users.UserByID(ctx, id); err != nil {
			return domain.Duel{}, err
		}
	}

	questions := s.generator.Generate(ctx, domain.QuestionRequest{
		Topic:      topic,
		Difficulty: difficulty,
		Count:      questionCount,
		Mode:       domain.ModeDuel,
	})

	duel := domain.Duel{
		ID:            uuid.NewString(),
		Player1ID:     player1ID,
		Player2ID:     player2ID,
		QuestionCount: questionCount,
		Questions:     make([]domain.DuelQuestion, 0, len(questions)),
		CreatedAt:     s.now().UTC(),
		Topic:         topic,
		Difficulty:    difficulty,
	}
	for i, q := range questions {
		duel.Questions = append(duel.Questions, domain.DuelQuestion{Index: i + 1, Question: q})
	}

	if err := s.duels.CreateDuel(ctx, duel); err != nil {
		return domain.Duel{}, err
	}
	s.log.Info("duel created",
		zap.String("duelId", duel.ID),
		zap.String("topic", topic),
		zap.Int("requested", questionCount),
		zap.Int("questions", len(duel.Questions)))
	return duel, nil
}

// Challenge creates a duel between the current user and an opponent.
func (s *DuelService) Challenge(ctx context.Context, opponentID, topic, difficulty string, questionCount int) (domain.Duel, error) {
	user, ok := CurrentUser(ctx)
	if !ok {
		return domain.Duel{}, domain.ErrUnauthenticated
	}
	return s.CreateDuel(ctx, user.ID, opponentID, topic, difficulty, questionCount)
}

func (s *DuelService) GetDuel(ctx context.Context, id string) (domain.Duel, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	return s.duels.Duel(ctx, id)
}

// RecordScore sets a slot's score and finishes the duel once both are set.
// Each slot is written at most once; repeating the same score is a no-op.
func (s *DuelService) RecordScore(ctx context.Context, duelID string, slot, score int) (domain.Duel, error) {
	if slot != 1 && slot != 2 {
		return domain.Duel{}, domain.ErrInvalidSlot
	}
	if score < 0 {
		return domain.Duel{}, domain.ErrInvalidScore
	}
	if strings.TrimSpace(duelID) == "" {
		return domain.Duel{}, domain.ErrDuelNotFound
	}

	// Players, topic and difficulty never change, so the leg can be built
	// from a read taken before the write.
	before, err := s.duels.Duel(ctx, duelID)
	if err != nil {
		return domain.Duel{}, err
	}
	applied, err := s.duels.SetScore(ctx, duelID, slot, score)
	if err != nil {
		return domain.Duel{}, err
	}
	if applied {
		s.recordLeg(ctx, before, slot, score)
	}

	// Re-read after every write: either writer may be the one that sees both
	// slots filled, and MarkFinished only succeeds once.
	finished, err := s.duels.MarkFinished(ctx, duelID, s.now().UTC())
	if err != nil {
		return domain.Duel{}, err
	}
	duel, err := s.duels.Duel(ctx, duelID)
	if err != nil {
		return domain.Duel{}, err
	}

	if !applied {
		if current := duel.Score(slot); current == nil || *current != score {
			return duel, domain.ErrScoreAlreadyRecorded
		}
		return duel, nil
	}

	if finished {
		s.log.Info("duel finished",
			zap.String("duelId", duel.ID),
			zap.Intp("player1Score", duel.Player1Score),
			zap.Intp("player2Score", duel.Player2Score))
	}
	return duel, nil
}

// RecordOwnScore records the current user's score in the slot they occupy.
func (s *DuelService) RecordOwnScore(ctx context.Context, duelID string, score int) (domain.Duel, error) {
	user, ok := CurrentUser(ctx)
	if !ok {
		return domain.Duel{}, domain.ErrUnauthenticated
	}
	duel, err := s.GetDuel(ctx, duelID)
	if err != nil {
		return domain.Duel{}, err
	}
	slot, err := SlotFor(duel, user.ID)
	if err != nil {
		return domain.Duel{}, err
	}
	return s.RecordScore(ctx, duelID, slot, score)
}

// SlotFor maps a user to their duel slot.
func SlotFor(duel domain.Duel, userID string) (int, error) {
	switch userID {
	case duel.Player1ID:
		return 1, nil
	case duel.Player2ID:
		return 2, nil
	}
	return 0, domain.ErrNotDuelPlayer
}

// recordLeg appends the duel leg as a quiz result. The duel score is already
// durable, so a failed append is logged rather than returned.
func (s *DuelService) recordLeg(ctx context.Context, duel domain.Duel, slot, score int) {
	if s.results == nil {
		return
	}
	err := s.results.AppendResult(ctx, domain.QuizResult{
		ID:          uuid.NewString(),
		UserID:      duel.PlayerID(slot),
		Score:       score,
		CompletedAt: s.now().UTC(),
		Mode:        domain.ModeDuel,
		Topic:       duel.Topic,
		Difficulty:  duel.Difficulty,
	})
	if err != nil {
		s.log.Error("append duel result failed", zap.String("duelId", duel.ID), zap.Int("slot", slot), zap.Error(err))
	}
}
