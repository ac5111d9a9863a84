package domain

import "errors"

var (
	// ErrInvalidSubmission is returned for a blank display name or a non-positive score.
	ErrInvalidSubmission = errors.New("invalid score submission")
	// ErrInvalidQuestionCount indicates a duel was requested with fewer than one question.
	ErrInvalidQuestionCount = errors.New("question count must be at least 1")
	// ErrInvalidPlayers indicates missing or identical duel players.
	ErrInvalidPlayers = errors.New("duel needs two distinct players")
	// ErrInvalidSlot indicates a player slot other than 1 or 2.
	ErrInvalidSlot = errors.New("player slot must be 1 or 2")
	// ErrInvalidScore indicates a negative score.
	ErrInvalidScore = errors.New("score must not be negative")
	// ErrInvalidPeriod indicates an unknown leaderboard period.
	ErrInvalidPeriod = errors.New("unknown leaderboard period")
	// ErrInvalidCredentials covers missing registration fields and failed logins.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrDuelNotFound = errors.New("duel not found")
	ErrUserNotFound = errors.New("user not found")

	// ErrDisplayNameTaken is returned when another user already owns the display name.
	ErrDisplayNameTaken = errors.New("display name already in use")
	// ErrEmailTaken is returned when another user already registered the email.
	ErrEmailTaken = errors.New("email already in use")
	// ErrScoreAlreadyRecorded is returned when a slot already holds a different score.
	ErrScoreAlreadyRecorded = errors.New("score already recorded for this player")

	ErrUnauthenticated = errors.New("not signed in")
	ErrNotDuelPlayer   = errors.New("user is not a player in this duel")
)
