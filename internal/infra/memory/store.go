package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"trivia-duel-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byName  map[string]string
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]domain.User),
		byName:  make(map[string]string),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[user.DisplayName]; ok {
		return domain.ErrDisplayNameTaken
	}
	if user.Email != "" {
		if _, ok := s.byEmail[user.Email]; ok {
			return domain.ErrEmailTaken
		}
		s.byEmail[user.Email] = user.ID
	}
	s.byID[user.ID] = user
	s.byName[user.DisplayName] = user.ID
	return nil
}

func (s *UserStore) UserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) UserByDisplayName(_ context.Context, displayName string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[displayName]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) UsersByID(_ context.Context, ids []string) (map[string]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.User, len(ids))
	for _, id := range ids {
		if user, ok := s.byID[id]; ok {
			out[id] = user
		}
	}
	return out, nil
}

// ResultStore is an append-only in-memory implementation of app.ResultRepository.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.QuizResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) AppendResult(_ context.Context, result domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func (s *ResultStore) ResultsSince(_ context.Context, since time.Time) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizResult, 0, len(s.results))
	for _, r := range s.results {
		if !r.CompletedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out, nil
}

// Len reports how many results have been appended.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// DuelStore is an in-memory implementation of app.DuelRepository.
type DuelStore struct {
	mu    sync.RWMutex
	duels map[string]domain.Duel
}

func NewDuelStore() *DuelStore {
	return &DuelStore{duels: make(map[string]domain.Duel)}
}

func (s *DuelStore) CreateDuel(_ context.Context, duel domain.Duel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.duels[duel.ID] = cloneDuel(duel)
	return nil
}

func (s *DuelStore) Duel(_ context.Context, id string) (domain.Duel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	duel, ok := s.duels[id]
	if !ok {
		return domain.Duel{}, domain.ErrDuelNotFound
	}
	return cloneDuel(duel), nil
}

func (s *DuelStore) SetScore(_ context.Context, id string, slot, score int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	duel, ok := s.duels[id]
	if !ok {
		return false, domain.ErrDuelNotFound
	}
	target := &duel.Player1Score
	if slot == 2 {
		target = &duel.Player2Score
	}
	if *target != nil {
		return false, nil
	}
	*target = &score
	s.duels[id] = duel
	return true, nil
}

func (s *DuelStore) MarkFinished(_ context.Context, id string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	duel, ok := s.duels[id]
	if !ok {
		return false, domain.ErrDuelNotFound
	}
	if duel.FinishedAt != nil || duel.Player1Score == nil || duel.Player2Score == nil {
		return false, nil
	}
	duel.FinishedAt = &at
	s.duels[id] = duel
	return true, nil
}

func cloneDuel(d domain.Duel) domain.Duel {
	out := d
	out.Questions = make([]domain.DuelQuestion, len(d.Questions))
	for i, q := range d.Questions {
		q.Options = append([]string(nil), q.Options...)
		out.Questions[i] = q
	}
	out.Player1Score = cloneInt(d.Player1Score)
	out.Player2Score = cloneInt(d.Player2Score)
	if d.FinishedAt != nil {
		t := *d.FinishedAt
		out.FinishedAt = &t
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Sequencer issues broadcast sequence numbers from a process-local counter.
type Sequencer struct {
	n atomic.Uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

func (s *Sequencer) Next(context.Context) (uint64, error) {
	return s.n.Add(1), nil
}

// UnorderedSequencer always returns 0, which the hub delivers unconditionally.
type UnorderedSequencer struct{}

func (UnorderedSequencer) Next(context.Context) (uint64, error) {
	return 0, nil
}
