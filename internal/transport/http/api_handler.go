package http

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

// APIHandler serves the JSON endpoints for identity, duels and leaderboards.
type APIHandler struct {
	auth   *app.AuthService
	duels  *app.DuelService
	board  *app.LeaderboardService
	scores *app.ScoreCoordinator
	tokens TokenIssuer
	users  UserLookup
	log    *zap.Logger
}

func NewAPIHandler(auth *app.AuthService, duels *app.DuelService, board *app.LeaderboardService, scores *app.ScoreCoordinator, tokens TokenIssuer, users UserLookup, logger *zap.Logger) *APIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		auth:   auth,
		duels:  duels,
		board:  board,
		scores: scores,
		tokens: tokens,
		users:  users,
		log:    logger,
	}
}

// Register mounts the API routes on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	authed := func(fn http.HandlerFunc) http.Handler {
		return RequireUser(h.tokens, h.users, h.log, fn)
	}
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.Handle("POST /api/duels", authed(h.createDuel))
	mux.HandleFunc("GET /api/duels/{id}", h.getDuel)
	mux.Handle("POST /api/duels/{id}/score", authed(h.recordDuelScore))
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
	mux.HandleFunc("POST /api/scores", h.submitScore)
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type sessionResponse struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}

func (h *APIHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusCreated, user)
}

func (h *APIHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeSession(w, http.StatusOK, user)
}

func (h *APIHandler) writeSession(w http.ResponseWriter, status int, user domain.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("issue token failed", zap.String("userId", user.ID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, status, sessionResponse{UserID: user.ID, DisplayName: user.DisplayName, Token: token})
}

type createDuelRequest struct {
	OpponentID    string `json:"opponentId"`
	Topic         string `json:"topic"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
}

func (h *APIHandler) createDuel(w http.ResponseWriter, r *http.Request) {
	var req createDuelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	duel, err := h.duels.Challenge(r.Context(), req.OpponentID, req.Topic, req.Difficulty, req.QuestionCount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, duel)
}

func (h *APIHandler) getDuel(w http.ResponseWriter, r *http.Request) {
	duel, err := h.duels.GetDuel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, duel)
}

type duelScoreRequest struct {
	Score *int `json:"score"`
}

func (h *APIHandler) recordDuelScore(w http.ResponseWriter, r *http.Request) {
	var req duelScoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Score == nil {
		writeError(w, domain.ErrInvalidScore)
		return
	}
	duel, err := h.duels.RecordOwnScore(r.Context(), r.PathValue("id"), *req.Score)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, duel)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	lb, err := h.board.Snapshot(r.Context(), period)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

type scoreRequest struct {
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Period string `json:"period"`
}

func (h *APIHandler) submitScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := applyScore(r.Context(), h.scores, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func applyScore(ctx context.Context, scores *app.ScoreCoordinator, req scoreRequest) (domain.QuizResult, error) {
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		return domain.QuizResult{}, err
	}
	return scores.Submit(ctx, req.Name, req.Score, period)
}
