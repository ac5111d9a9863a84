package app

import (
	"context"
	"sort"
	"time"

	"trivia-duel-service/internal/domain"
)

// ResultRepository is the append-only store of quiz results.
type ResultRepository interface {
	AppendResult(ctx context.Context, result domain.QuizResult) error
	// ResultsSince returns results completed at or after since, oldest first.
	ResultsSince(ctx context.Context, since time.Time) ([]domain.QuizResult, error)
}

// LeaderboardService computes ranked, windowed score totals. It never writes.
type LeaderboardService struct {
	results ResultRepository
	users   UserRepository
	now     func() time.Time
}

func NewLeaderboardService(results ResultRepository, users UserRepository) *LeaderboardService {
	return &LeaderboardService{results: results, users: users, now: time.Now}
}

// NewLeaderboardServiceWithClock is test-only for deterministic windows.
func NewLeaderboardServiceWithClock(results ResultRepository, users UserRepository, now func() time.Time) *LeaderboardService {
	return &LeaderboardService{results: results, users: users, now: now}
}

// GetLeaderboard ranks users by their total score inside the period's window.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, period domain.Period) ([]domain.LeaderboardEntry, error) {
	lb, err := s.Snapshot(ctx, period)
	if err != nil {
		return nil, err
	}
	return lb.Entries, nil
}

// Snapshot is GetLeaderboard wrapped with its period and computation time.
func (s *LeaderboardService) Snapshot(ctx context.Context, period domain.Period) (domain.Leaderboard, error) {
	period, err := domain.ParsePeriod(string(period))
	if err != nil {
		return domain.Leaderboard{}, err
	}
	now := s.now()
	results, err := s.results.ResultsSince(ctx, period.WindowStart(now))
	if err != nil {
		return domain.Leaderboard{}, err
	}

	totals := make(map[string]int)
	order := make([]string, 0)
	for _, r := range results {
		if _, seen := totals[r.UserID]; !seen {
			order = append(order, r.UserID)
		}
		totals[r.UserID] += r.Score
	}

	users, err := s.users.UsersByID(ctx, order)
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.LeaderboardEntry, 0, len(order))
	for _, id := range order {
		user, ok := users[id]
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			UserID:      id,
			DisplayName: user.DisplayName,
			TotalScore:  totals[id],
		})
	}

	// Ties keep the order in which users first appear in the window.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalScore > entries[j].TotalScore
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return domain.Leaderboard{
		Period:    period,
		Entries:   entries,
		UpdatedAt: now.UTC(),
	}, nil
}
