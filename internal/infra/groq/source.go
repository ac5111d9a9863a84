package groq

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"trivia-duel-service/internal/domain"
)

const systemPrompt = `You are a quiz question generator.
Return ONLY a valid JSON array like:

[
  {
    "text": "question text",
    "options": ["A", "B", "C", "D"],
    "correctIndex": 0
  }
]

- Always 4 options.
- Exactly one correctIndex (0-3).
- No explanation, no markdown, no code fences, no extra text.`

// Source produces questions from a chat completion. It implements app.QuestionSource.
type Source struct {
	client *Client
	log    *zap.Logger
}

func NewSource(client *Client, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{client: client, log: logger}
}

func (s *Source) Questions(ctx context.Context, req domain.QuestionRequest) ([]domain.Question, error) {
	content, err := s.client.Complete(ctx, systemPrompt, UserPrompt(req))
	if err != nil {
		return nil, err
	}
	questions, err := ParseQuestions(content, req)
	if err != nil {
		s.log.Debug("unusable completion", zap.String("content", truncate(content, 400)), zap.Error(err))
		return nil, err
	}
	s.log.Debug("questions generated",
		zap.String("topic", req.Topic),
		zap.Int("requested", req.Count),
		zap.Int("parsed", len(questions)))
	return questions, nil
}

// UserPrompt embeds the request parameters in the user instruction.
func UserPrompt(req domain.QuestionRequest) string {
	return fmt.Sprintf("Generate %d %s difficulty multiple-choice questions about %s for mode %s. Output ONLY JSON, nothing else.",
		req.Count, req.Difficulty, req.Topic, req.Mode)
}
