package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-duel-service/internal/domain"
)

func TestQuestionCacheReusesGeneration(t *testing.T) {
	source := &countingSource{questions: sampleQuestions()}
	cache := NewQuestionCache(source, time.Minute)
	req := domain.QuestionRequest{Topic: "Science", Difficulty: "easy", Count: 1, Mode: domain.ModeDaily}

	if _, err := cache.Questions(context.Background(), req); err != nil {
		t.Fatalf("questions: %v", err)
	}
	if source.calls.Load() != 1 {
		t.Fatalf("expected source once, got %d", source.calls.Load())
	}

	qs, err := cache.Questions(context.Background(), req)
	if err != nil {
		t.Fatalf("questions 2: %v", err)
	}
	if source.calls.Load() != 1 {
		t.Fatalf("expected cache hit, source calls %d", source.calls.Load())
	}
	qs[0].Options[0] = "mutated"
	again, _ := cache.Questions(context.Background(), req)
	if again[0].Options[0] != "A" {
		t.Fatalf("cached questions share memory with caller")
	}

	other := req
	other.Count = 2
	_, _ = cache.Questions(context.Background(), other)
	if source.calls.Load() != 2 {
		t.Fatalf("expected a different count to miss, calls %d", source.calls.Load())
	}
}

func TestQuestionCacheExpires(t *testing.T) {
	source := &countingSource{questions: sampleQuestions()}
	cache := NewQuestionCache(source, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }
	req := domain.QuestionRequest{Topic: "Science", Count: 1}

	_, _ = cache.Questions(context.Background(), req)
	now = now.Add(2 * time.Minute)
	_, _ = cache.Questions(context.Background(), req)
	if source.calls.Load() != 2 {
		t.Fatalf("expected expiry to reload, calls %d", source.calls.Load())
	}
}

func TestQuestionCacheSkipsFailures(t *testing.T) {
	source := &countingSource{err: errors.New("rate limited")}
	cache := NewQuestionCache(source, time.Minute)
	req := domain.QuestionRequest{Topic: "Science", Count: 1}

	for i := 0; i < 2; i++ {
		if _, err := cache.Questions(context.Background(), req); err == nil {
			t.Fatalf("expected error")
		}
	}
	if source.calls.Load() != 2 {
		t.Fatalf("expected failures to stay uncached, calls %d", source.calls.Load())
	}
}

func TestQuestionCacheCoalescesConcurrentMisses(t *testing.T) {
	release := make(chan struct{})
	source := &countingSource{questions: sampleQuestions(), gate: release}
	cache := NewQuestionCache(source, time.Minute)
	req := domain.QuestionRequest{Topic: "Science", Count: 1}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Questions(context.Background(), req); err != nil {
				t.Errorf("questions: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if source.calls.Load() != 1 {
		t.Fatalf("expected one source call, got %d", source.calls.Load())
	}
}

type countingSource struct {
	questions []domain.Question
	err       error
	gate      chan struct{}
	calls     atomic.Int32
}

func (s *countingSource) Questions(_ context.Context, _ domain.QuestionRequest) ([]domain.Question, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil {
		return nil, s.err
	}
	return cloneQuestions(s.questions), nil
}

func sampleQuestions() []domain.Question {
	return []domain.Question{{
		Text:         "What is H2O?",
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: 0,
		Topic:        "Science",
	}}
}
