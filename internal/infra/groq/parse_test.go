package groq

import (
	"errors"
	"testing"

	"trivia-duel-service/internal/domain"
)

func TestRepairStripsNoise(t *testing.T) {
	cases := map[string]string{
		"fenced": "```json\n[{\"text\":\"Q\"}]\n```",
		"chatty": "Sure! Here you go:\n[{\"text\":\"Q\"}]\nEnjoy.",
		"spaced": "   [{\"text\":\"Q\"}]  ",
		"plain":  `[{"text":"Q"}]`,
	}
	for name, in := range cases {
		if got := Repair(in); got != `[{"text":"Q"}]` {
			t.Fatalf("%s: unexpected repair %q", name, got)
		}
	}
	if got := Repair(`[{"text":"It\'s"}]`); got != `[{"text":"It's"}]` {
		t.Fatalf("expected escaped quote repaired, got %q", got)
	}
}

func TestParseQuestionsFromChattyCompletion(t *testing.T) {
	req := domain.QuestionRequest{Topic: "Space", Difficulty: "hard", Count: 1}
	content := "Sure! ```json\n[{\"text\":\"Q\",\"options\":[\"A\",\"B\",\"C\",\"D\"],\"correctIndex\":1}]\n```"

	qs, err := ParseQuestions(content, req)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected one question, got %d", len(qs))
	}
	q := qs[0]
	if q.Text != "Q" || q.CorrectIndex != 1 || q.Topic != "Space" || q.Difficulty != "hard" || len(q.Options) != 4 {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestParseQuestionsSkipsBadElements(t *testing.T) {
	content := `[
		{"text":"good","options":["A","B","C","D"],"correctIndex":0},
		{"text":"three options","options":["A","B","C"],"correctIndex":0},
		{"text":"no index","options":["A","B","C","D"]},
		{"text":"index too big","options":["A","B","C","D"],"correctIndex":4},
		{"options":["A","B","C","D"],"correctIndex":1},
		{"text":"string index","options":["A","B","C","D"],"correctIndex":"1"},
		"not an object",
		{"text":"also good","options":["A","B","C","D"],"correctIndex":3}
	]`

	qs, err := ParseQuestions(content, domain.QuestionRequest{Topic: "Art"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(qs) != 2 || qs[0].Text != "good" || qs[1].Text != "also good" {
		t.Fatalf("expected the two valid questions, got %+v", qs)
	}
}

func TestParseQuestionsErrors(t *testing.T) {
	if _, err := ParseQuestions(`[{"text":"bad","options":[],"correctIndex":0}]`, domain.QuestionRequest{}); !errors.Is(err, ErrNoValidQuestions) {
		t.Fatalf("expected ErrNoValidQuestions, got %v", err)
	}
	if _, err := ParseQuestions("I cannot help with that.", domain.QuestionRequest{}); err == nil {
		t.Fatalf("expected error for prose completion")
	}
}
