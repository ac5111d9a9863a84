package app_test

import (
	"context"
	"errors"
	"testing"

	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

type stubSource struct {
	questions []domain.Question
	err       error
	calls     int
}

func (s *stubSource) Questions(_ context.Context, _ domain.QuestionRequest) ([]domain.Question, error) {
	s.calls++
	return s.questions, s.err
}

func validQuestion(text string) domain.Question {
	return domain.Question{
		Text:         text,
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: 2,
		Topic:        "Science",
		Difficulty:   "easy",
	}
}

func TestFallbackWithoutSource(t *testing.T) {
	gen := app.NewQuestionGenerator(nil, nil)
	req := domain.QuestionRequest{Topic: "Science", Difficulty: "easy", Count: 5, Mode: domain.ModeLearning}

	qs := gen.Generate(context.Background(), req)
	if len(qs) != 1 {
		t.Fatalf("expected one fallback question, got %d", len(qs))
	}
	q := qs[0]
	if !q.Valid() || q.Topic != "Science" || q.Difficulty != "easy" {
		t.Fatalf("unexpected fallback question %+v", q)
	}
	if q.Options[q.CorrectIndex] != "Science" {
		t.Fatalf("expected topic to be the correct option, got %q", q.Options[q.CorrectIndex])
	}
}

func TestRemoteFailureFallsBack(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	gen := app.NewQuestionGenerator(source, nil)

	qs := gen.Generate(context.Background(), domain.QuestionRequest{Topic: "History", Count: 3})
	if len(qs) != 1 || !qs[0].Valid() {
		t.Fatalf("expected single valid fallback, got %+v", qs)
	}
	if source.calls != 1 {
		t.Fatalf("expected one remote call, got %d", source.calls)
	}
}

func TestRemoteDropsInvalidQuestions(t *testing.T) {
	bad := validQuestion("three options")
	bad.Options = bad.Options[:3]
	outOfRange := validQuestion("index out of range")
	outOfRange.CorrectIndex = 4

	source := &stubSource{questions: []domain.Question{validQuestion("Q1"), bad, outOfRange, validQuestion("Q2")}}
	gen := app.NewQuestionGenerator(source, nil)

	qs := gen.Generate(context.Background(), domain.QuestionRequest{Topic: "Science", Count: 4})
	if len(qs) != 2 || qs[0].Text != "Q1" || qs[1].Text != "Q2" {
		t.Fatalf("expected only the valid questions, got %+v", qs)
	}
}

func TestRemoteWithNothingUsableFallsBack(t *testing.T) {
	bad := validQuestion("bad")
	bad.CorrectIndex = -1
	gen := app.NewQuestionGenerator(&stubSource{questions: []domain.Question{bad}}, nil)

	qs := gen.Generate(context.Background(), domain.QuestionRequest{Topic: "Art", Count: 1})
	if len(qs) != 1 || qs[0].Topic != "Art" {
		t.Fatalf("expected fallback question, got %+v", qs)
	}
}

func TestQuestionCacheKeyNormalizes(t *testing.T) {
	a := app.QuestionCacheKey(domain.QuestionRequest{Topic: " Science ", Difficulty: "EASY", Count: 3, Mode: domain.ModeDaily})
	b := app.QuestionCacheKey(domain.QuestionRequest{Topic: "science", Difficulty: "easy", Count: 3, Mode: domain.ModeDaily})
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	c := app.QuestionCacheKey(domain.QuestionRequest{Topic: "science", Difficulty: "easy", Count: 4, Mode: domain.ModeDaily})
	if a == c {
		t.Fatalf("expected count to change the key")
	}
}
