package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"trivia-duel-service/internal/domain"
)

func TestQuestionCacheStoresInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: sampleQuestions()}
	cache := NewQuestionCache(newClient(mr), source, time.Minute, nil)
	req := domain.QuestionRequest{Topic: "Science", Difficulty: "Easy", Count: 1, Mode: domain.ModeLearning}

	if _, err := cache.Questions(context.Background(), req); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	key := "questions:science|easy|learning|1"
	if !mr.Exists(key) {
		t.Fatalf("expected redis key %s, have %v", key, mr.Keys())
	}
	if ttl := mr.TTL(key); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("expected ttl within jitter bounds, got %s", ttl)
	}

	// Second call should hit cache, source not incremented.
	qs, err := cache.Questions(context.Background(), req)
	if err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
	if len(qs) != 1 || qs[0].Text != "What is H2O?" || qs[0].CorrectIndex != 2 {
		t.Fatalf("unexpected cached questions %+v", qs)
	}

	mr.FastForward(2 * time.Minute)
	_, _ = cache.Questions(context.Background(), req)
	if source.calls != 2 {
		t.Fatalf("expected expiry to reload, source calls=%d", source.calls)
	}
}

func TestQuestionCacheDoesNotStoreFailures(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{err: errors.New("boom")}
	cache := NewQuestionCache(newClient(mr), source, time.Minute, nil)
	req := domain.QuestionRequest{Topic: "Science", Count: 1}

	if _, err := cache.Questions(context.Background(), req); err == nil {
		t.Fatalf("expected error")
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected nothing cached, have %v", mr.Keys())
	}
}

func TestQuestionCacheBypassesUnavailableRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	source := &countingSource{questions: sampleQuestions()}
	cache := NewQuestionCache(client, source, time.Minute, nil)
	qs, err := cache.Questions(context.Background(), domain.QuestionRequest{Topic: "Science", Count: 1})
	if err != nil || len(qs) != 1 {
		t.Fatalf("expected source result despite redis outage, got %v %v", qs, err)
	}
}

func TestQuestionCacheReturnsIndependentCopies(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: sampleQuestions()}
	cache := NewQuestionCache(newClient(mr), source, time.Minute, nil)
	req := domain.QuestionRequest{Topic: "Science", Count: 1}

	first, err := cache.Questions(context.Background(), req)
	if err != nil {
		t.Fatalf("questions: %v", err)
	}
	first[0].Options[0] = "changed"
	first[0].Text = "changed"

	if source.questions[0].Options[0] != "Salt" || source.questions[0].Text != "What is H2O?" {
		t.Fatalf("caller mutation leaked into the generated set: %+v", source.questions[0])
	}
	second, err := cache.Questions(context.Background(), req)
	if err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if second[0].Options[0] != "Salt" {
		t.Fatalf("caller mutation leaked into cached set: %+v", second[0])
	}
}

type countingSource struct {
	questions []domain.Question
	err       error
	calls     int
}

func (s *countingSource) Questions(_ context.Context, _ domain.QuestionRequest) ([]domain.Question, error) {
	s.calls++
	return s.questions, s.err
}

func sampleQuestions() []domain.Question {
	return []domain.Question{{
		Text:         "What is H2O?",
		Options:      []string{"Salt", "Sugar", "Water", "Air"},
		CorrectIndex: 2,
		Topic:        "Science",
		Difficulty:   "Easy",
	}}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
