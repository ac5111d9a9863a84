package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
	"trivia-duel-service/internal/infra/memory"
)

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (b *recordingBroadcaster) BroadcastToAll(_ context.Context, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return b.err
}

type failingSequencer struct{}

func (failingSequencer) Next(context.Context) (uint64, error) {
	return 0, errors.New("sequence unavailable")
}

func newCoordinator(broadcaster app.Broadcaster, seq app.Sequencer) (*app.ScoreCoordinator, *memory.UserStore, *memory.ResultStore) {
	users := memory.NewUserStore()
	results := memory.NewResultStore()
	board := app.NewLeaderboardService(results, users)
	return app.NewScoreCoordinator(users, results, board, broadcaster, seq, nil), users, results
}

func TestSubmitRecordsAndBroadcasts(t *testing.T) {
	b := &recordingBroadcaster{}
	coord, users, results := newCoordinator(b, memory.NewSequencer())
	ctx := context.Background()

	first, err := coord.Submit(ctx, "Alice", 10, domain.PeriodDaily)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Mode != domain.ModeCasual || first.Topic != "Demo" || first.Difficulty != "N/A" {
		t.Fatalf("unexpected result %+v", first)
	}
	second, err := coord.Submit(ctx, " Alice ", 5, domain.PeriodWeekly)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.UserID != second.UserID {
		t.Fatalf("expected same user for same display name, got %s and %s", first.UserID, second.UserID)
	}
	if _, err := users.UserByDisplayName(ctx, "Alice"); err != nil {
		t.Fatalf("expected user to exist: %v", err)
	}
	if results.Len() != 2 {
		t.Fatalf("expected 2 results, got %d", results.Len())
	}

	if len(b.events) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(b.events))
	}
	last := b.events[1]
	if last.Name != domain.EventLeaderboardUpdated || last.Scope != "weekly" || last.Seq <= b.events[0].Seq {
		t.Fatalf("unexpected event %+v", last)
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(last.Payload, &lb); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(lb.Entries) != 1 || lb.Entries[0].TotalScore != 15 {
		t.Fatalf("expected Alice with 15, got %+v", lb.Entries)
	}
}

func TestSubmitRejectsBlankNameAndNonPositiveScore(t *testing.T) {
	b := &recordingBroadcaster{}
	coord, _, results := newCoordinator(b, memory.NewSequencer())
	ctx := context.Background()

	for _, tc := range []struct {
		name  string
		score int
	}{{"", 10}, {"   ", 10}, {"Alice", 0}, {"Alice", -3}} {
		if _, err := coord.Submit(ctx, tc.name, tc.score, domain.PeriodDaily); !errors.Is(err, domain.ErrInvalidSubmission) {
			t.Fatalf("%q/%d: expected ErrInvalidSubmission, got %v", tc.name, tc.score, err)
		}
	}
	if _, err := coord.Submit(ctx, "Alice", 1, "yearly"); !errors.Is(err, domain.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if results.Len() != 0 || len(b.events) != 0 {
		t.Fatalf("expected no writes or broadcasts, got %d results %d events", results.Len(), len(b.events))
	}
}

func TestSubmitSurvivesPublishFailure(t *testing.T) {
	b := &recordingBroadcaster{err: errors.New("socket closed")}
	coord, _, results := newCoordinator(b, memory.NewSequencer())
	if _, err := coord.Submit(context.Background(), "Alice", 3, domain.PeriodDaily); err != nil {
		t.Fatalf("expected success despite broadcast failure, got %v", err)
	}

	coord, _, results2 := newCoordinator(&recordingBroadcaster{}, failingSequencer{})
	if _, err := coord.Submit(context.Background(), "Bob", 3, domain.PeriodDaily); err != nil {
		t.Fatalf("expected success despite sequence failure, got %v", err)
	}
	if results.Len() != 1 || results2.Len() != 1 {
		t.Fatalf("expected results to be stored")
	}
}

func TestConcurrentFirstSubmissionsShareUser(t *testing.T) {
	coord, _, results := newCoordinator(&recordingBroadcaster{}, memory.NewSequencer())

	var wg sync.WaitGroup
	ids := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := coord.Submit(context.Background(), "Racer", 1, domain.PeriodDaily)
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			ids <- r.UserID
		}()
	}
	wg.Wait()
	close(ids)

	var first string
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("expected one user, saw %s and %s", first, id)
		}
	}
	if results.Len() != 8 {
		t.Fatalf("expected 8 results, got %d", results.Len())
	}
}

func TestHubDeliversInOrderAndDropsStale(t *testing.T) {
	hub := app.NewHub()
	ch, cancel := hub.Subscribe()
	defer cancel()
	ctx := context.Background()

	_ = hub.BroadcastToAll(ctx, domain.Event{Name: "LeaderboardUpdated", Scope: "daily", Seq: 2})
	_ = hub.BroadcastToAll(ctx, domain.Event{Name: "LeaderboardUpdated", Scope: "daily", Seq: 1})
	_ = hub.BroadcastToAll(ctx, domain.Event{Name: "LeaderboardUpdated", Scope: "weekly", Seq: 1})

	got := []domain.Event{<-ch, <-ch}
	if got[0].Seq != 2 || got[0].Scope != "daily" || got[1].Scope != "weekly" {
		t.Fatalf("unexpected delivery %+v", got)
	}
	select {
	case e := <-ch:
		t.Fatalf("stale event delivered: %+v", e)
	default:
	}
}

func TestHubSlowSubscriberKeepsNewest(t *testing.T) {
	hub := app.NewHub()
	ch, cancel := hub.Subscribe()
	ctx := context.Background()

	for seq := uint64(1); seq <= 20; seq++ {
		_ = hub.BroadcastToAll(ctx, domain.Event{Name: "LeaderboardUpdated", Seq: seq})
	}

	var last uint64
	for {
		select {
		case e := <-ch:
			if e.Seq <= last {
				t.Fatalf("out of order: %d after %d", e.Seq, last)
			}
			last = e.Seq
			continue
		default:
		}
		break
	}
	if last != 20 {
		t.Fatalf("expected newest event retained, last seen %d", last)
	}

	cancel()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected no subscribers after cancel")
	}
	cancel()
}

func TestInstancesWithoutSharedCounterReachObservers(t *testing.T) {
	hub := app.NewHub()
	updates, cancel := hub.Subscribe()
	defer cancel()
	ctx := context.Background()

	a, _, _ := newCoordinator(hub, memory.UnorderedSequencer{})
	b, _, _ := newCoordinator(hub, memory.UnorderedSequencer{})

	for i := 0; i < 3; i++ {
		if _, err := a.Submit(ctx, "alice", 10, domain.PeriodDaily); err != nil {
			t.Fatalf("submit a: %v", err)
		}
		<-updates
	}
	if _, err := b.Submit(ctx, "bob", 99, domain.PeriodDaily); err != nil {
		t.Fatalf("submit b: %v", err)
	}

	select {
	case e := <-updates:
		var lb domain.Leaderboard
		if err := json.Unmarshal(e.Payload, &lb); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if len(lb.Entries) != 1 || lb.Entries[0].DisplayName != "bob" || lb.Entries[0].TotalScore != 99 {
			t.Fatalf("expected bob's board from instance b, got %+v", lb.Entries)
		}
	default:
		t.Fatalf("instance b's submission was not broadcast")
	}
}
