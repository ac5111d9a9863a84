package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"trivia-duel-service/internal/domain"
)

type userModel struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           string    `bun:"id,pk"`
	DisplayName  string    `bun:"display_name,notnull"`
	Email        *string   `bun:"email"`
	PasswordHash string    `bun:"password_hash,notnull"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
}

func newUserModel(u domain.User) *userModel {
	m := &userModel{
		ID:           u.ID,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if u.Email != "" {
		email := u.Email
		m.Email = &email
	}
	return m
}

func (m *userModel) domain() domain.User {
	u := domain.User{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt.UTC(),
	}
	if m.Email != nil {
		u.Email = *m.Email
	}
	return u
}

type duelModel struct {
	bun.BaseModel `bun:"table:duels,alias:d"`

	ID            string     `bun:"id,pk"`
	Player1ID     string     `bun:"player1_id,notnull"`
	Player2ID     string     `bun:"player2_id,notnull"`
	QuestionCount int        `bun:"question_count,notnull"`
	Player1Score  *int       `bun:"player1_score"`
	Player2Score  *int       `bun:"player2_score"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	FinishedAt    *time.Time `bun:"finished_at"`
	Topic         string     `bun:"topic,notnull"`
	Difficulty    string     `bun:"difficulty,notnull"`

	Questions []*duelQuestionModel `bun:"rel:has-many,join:id=duel_id"`
}

type duelQuestionModel struct {
	bun.BaseModel `bun:"table:duel_questions,alias:dq"`

	DuelID       string   `bun:"duel_id,pk"`
	Index        int      `bun:"idx,pk"`
	Text         string   `bun:"text,notnull"`
	Options      []string `bun:"options,array"`
	CorrectIndex int      `bun:"correct_index,notnull"`
	Topic        string   `bun:"topic,notnull"`
	Difficulty   string   `bun:"difficulty,notnull"`
}

func newDuelModel(d domain.Duel) *duelModel {
	m := &duelModel{
		ID:            d.ID,
		Player1ID:     d.Player1ID,
		Player2ID:     d.Player2ID,
		QuestionCount: d.QuestionCount,
		Player1Score:  d.Player1Score,
		Player2Score:  d.Player2Score,
		CreatedAt:     d.CreatedAt,
		FinishedAt:    d.FinishedAt,
		Topic:         d.Topic,
		Difficulty:    d.Difficulty,
	}
	for _, q := range d.Questions {
		m.Questions = append(m.Questions, &duelQuestionModel{
			DuelID:       d.ID,
			Index:        q.Index,
			Text:         q.Text,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
			Topic:        q.Topic,
			Difficulty:   q.Difficulty,
		})
	}
	return m
}

func (m *duelModel) domain() domain.Duel {
	d := domain.Duel{
		ID:            m.ID,
		Player1ID:     m.Player1ID,
		Player2ID:     m.Player2ID,
		QuestionCount: m.QuestionCount,
		Questions:     make([]domain.DuelQuestion, 0, len(m.Questions)),
		Player1Score:  m.Player1Score,
		Player2Score:  m.Player2Score,
		CreatedAt:     m.CreatedAt.UTC(),
		Topic:         m.Topic,
		Difficulty:    m.Difficulty,
	}
	if m.FinishedAt != nil {
		t := m.FinishedAt.UTC()
		d.FinishedAt = &t
	}
	for _, q := range m.Questions {
		d.Questions = append(d.Questions, domain.DuelQuestion{
			Index: q.Index,
			Question: domain.Question{
				Text:         q.Text,
				Options:      q.Options,
				CorrectIndex: q.CorrectIndex,
				Topic:        q.Topic,
				Difficulty:   q.Difficulty,
			},
		})
	}
	return d
}
