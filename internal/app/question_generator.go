package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"trivia-duel-service/internal/domain"
)

// QuestionGenerator produces a non-empty, validated question set. It never fails.
type QuestionGenerator interface {
	Generate(ctx context.Context, req domain.QuestionRequest) []domain.Question
}

// QuestionSource is a fallible producer of questions, typically a remote model.
type QuestionSource interface {
	Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error)
}

// NewQuestionGenerator picks the generator variant. A nil source means no remote
// credential is configured and only local content is served.
func NewQuestionGenerator(source QuestionSource, logger *zap.Logger) QuestionGenerator {
	if source == nil {
		return FallbackGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteGenerator{source: source, log: logger}
}

// FallbackGenerator serves the single locally authored question.
type FallbackGenerator struct{}

func (FallbackGenerator) Generate(_ context.Context, req domain.QuestionRequest) []domain.Question {
	return []domain.Question{FallbackQuestion(req)}
}

// RemoteGenerator asks a QuestionSource and degrades to FallbackQuestion on any failure.
type RemoteGenerator struct {
	source QuestionSource
	log    *zap.Logger
}

func (g *RemoteGenerator) Generate(ctx context.Context, req domain.QuestionRequest) []domain.Question {
	questions, err := g.source.Questions(ctx, req)
	if err != nil {
		g.log.Warn("question source failed, serving fallback",
			zap.String("topic", req.Topic),
			zap.String("mode", string(req.Mode)),
			zap.Error(err))
		return []domain.Question{FallbackQuestion(req)}
	}

	valid := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if q.Valid() {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		g.log.Warn("question source returned no valid questions, serving fallback",
			zap.String("topic", req.Topic))
		return []domain.Question{FallbackQuestion(req)}
	}
	return valid
}

// FallbackQuestion is deterministic for a given request.
func FallbackQuestion(req domain.QuestionRequest) domain.Question {
	return domain.Question{
		Text: fmt.Sprintf("Which topic is this %s question set about?", difficultyLabel(req.Difficulty)),
		Options: []string{
			req.Topic,
			"A different topic",
			"No particular topic",
			"Every topic at once",
		},
		CorrectIndex: 0,
		Topic:        req.Topic,
		Difficulty:   req.Difficulty,
	}
}

func difficultyLabel(difficulty string) string {
	if difficulty == "" {
		return "mixed-difficulty"
	}
	return difficulty
}

// QuestionCacheKey identifies requests that may share a generated question set.
func QuestionCacheKey(req domain.QuestionRequest) string {
	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(req.Topic)),
		strings.ToLower(strings.TrimSpace(req.Difficulty)),
		string(req.Mode),
		strconv.Itoa(req.Count),
	}, "|")
}
