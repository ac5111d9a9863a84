package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Mode identifies the kind of play a question set or result belongs to.
type Mode string

const (
	ModeLearning Mode = "learning"
	ModeDaily    Mode = "daily"
	ModeCasual   Mode = "casual"
	ModeDuel     Mode = "duel"
)

// Period selects the time window of a leaderboard.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Periods lists every supported leaderboard window.
var Periods = []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}

// ParsePeriod accepts a case-insensitive period name. An empty string means daily.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodDaily:
		return PeriodDaily, nil
	case PeriodWeekly:
		return PeriodWeekly, nil
	case PeriodMonthly:
		return PeriodMonthly, nil
	}
	return "", ErrInvalidPeriod
}

// WindowStart returns the first instant counted by a leaderboard for the period.
// Windows are anchored to the start of the current UTC day.
func (p Period) WindowStart(now time.Time) time.Time {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeekly:
		return day.AddDate(0, 0, -7)
	case PeriodMonthly:
		return day.AddDate(0, -1, 0)
	default:
		return day
	}
}

// User is a player identity. DisplayName is unique across users.
type User struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// QuizResult is an append-only record of one completed quiz or duel leg.
type QuizResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
	Mode        Mode      `json:"mode"`
	Topic       string    `json:"topic"`
	Difficulty  string    `json:"difficulty"`
}

// OptionCount is the number of options every question carries.
const OptionCount = 4

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Topic        string   `json:"topic"`
	Difficulty   string   `json:"difficulty"`
}

// Valid reports whether the question has exactly four options and an index within them.
func (q Question) Valid() bool {
	return len(q.Options) == OptionCount && q.CorrectIndex >= 0 && q.CorrectIndex < OptionCount
}

// QuestionRequest describes the question set a caller wants generated.
type QuestionRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
	Mode       Mode   `json:"mode"`
}

// DuelQuestion is a question fixed to a duel at a 1-based position.
type DuelQuestion struct {
	Index int `json:"index"`
	Question
}

// Duel is a head-to-head match over a fixed, shared question set.
type Duel struct {
	ID            string         `json:"id"`
	Player1ID     string         `json:"player1Id"`
	Player2ID     string         `json:"player2Id"`
	QuestionCount int            `json:"questionCount"`
	Questions     []DuelQuestion `json:"questions"`
	Player1Score  *int           `json:"player1Score"`
	Player2Score  *int           `json:"player2Score"`
	CreatedAt     time.Time      `json:"createdAt"`
	FinishedAt    *time.Time     `json:"finishedAt"`
	Topic         string         `json:"topic"`
	Difficulty    string         `json:"difficulty"`
}

// Finished reports whether both players have scored.
func (d Duel) Finished() bool {
	return d.FinishedAt != nil
}

// Score returns the recorded score for a slot (1 or 2).
func (d Duel) Score(slot int) *int {
	switch slot {
	case 1:
		return d.Player1Score
	case 2:
		return d.Player2Score
	}
	return nil
}

// PlayerID returns the player occupying a slot (1 or 2).
func (d Duel) PlayerID(slot int) string {
	switch slot {
	case 1:
		return d.Player1ID
	case 2:
		return d.Player2ID
	}
	return ""
}

// LeaderboardEntry is a ranked, windowed score total for one user.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalScore  int    `json:"totalScore"`
	Rank        int    `json:"rank"`
}

// Leaderboard captures the ordered scoreboard for a period.
type Leaderboard struct {
	Period    Period             `json:"period"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Event is a broadcast message. Seq orders events of the same Name and
// Scope for observers; a higher Seq was issued later.
type Event struct {
	Name    string          `json:"event"`
	Scope   string          `json:"scope,omitempty"`
	Seq     uint64          `json:"seq"`
	Payload json.RawMessage `json:"payload"`
}

// Stream identifies the ordered sequence the event belongs to.
func (e Event) Stream() string {
	return e.Name + "/" + e.Scope
}

// EventLeaderboardUpdated is emitted after every leaderboard recompute.
const EventLeaderboardUpdated = "LeaderboardUpdated"
