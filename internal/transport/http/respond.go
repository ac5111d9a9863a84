package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"trivia-duel-service/internal/domain"
)

type errorPayload struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, errorPayload{Message: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadBody),
		errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrInvalidQuestionCount),
		errors.Is(err, domain.ErrInvalidPlayers),
		errors.Is(err, domain.ErrInvalidSlot),
		errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotDuelPlayer):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDuelNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDisplayNameTaken),
		errors.Is(err, domain.ErrEmailTaken),
		errors.Is(err, domain.ErrScoreAlreadyRecorded):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return errBadBody
	}
	return nil
}

var errBadBody = errors.New("malformed request body")
