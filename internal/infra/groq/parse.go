package groq

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trivia-duel-service/internal/domain"
)

// ErrNoValidQuestions is returned when a completion holds no usable question.
var ErrNoValidQuestions = errors.New("no valid questions in completion")

// Repair turns model output into the candidate JSON array: it drops a
// surrounding code fence, fixes \' escapes, and keeps only the text from the
// first '[' to the last ']'.
func Repair(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		firstNewline := strings.IndexByte(content, '\n')
		lastFence := strings.LastIndex(content, "```")
		if firstNewline >= 0 && lastFence > firstNewline {
			content = strings.TrimSpace(content[firstNewline+1 : lastFence])
		}
	}

	content = strings.ReplaceAll(content, `\'`, `'`)

	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}

type rawQuestion struct {
	Text         *string  `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correctIndex"`
}

// ParseQuestions repairs and parses a completion. Elements that are not a
// question with a text, exactly four string options, and an integer
// correctIndex in [0,3] are skipped.
func ParseQuestions(content string, req domain.QuestionRequest) ([]domain.Question, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(Repair(content)), &elements); err != nil {
		return nil, fmt.Errorf("parse question array: %w", err)
	}

	questions := make([]domain.Question, 0, len(elements))
	for _, element := range elements {
		var raw rawQuestion
		if err := json.Unmarshal(element, &raw); err != nil {
			continue
		}
		if raw.Text == nil || strings.TrimSpace(*raw.Text) == "" || raw.CorrectIndex == nil {
			continue
		}
		q := domain.Question{
			Text:         strings.TrimSpace(*raw.Text),
			Options:      raw.Options,
			CorrectIndex: *raw.CorrectIndex,
			Topic:        req.Topic,
			Difficulty:   req.Difficulty,
		}
		if !q.Valid() {
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}
	return questions, nil
}
