package http

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/domain"
)

// TokenIssuer signs and verifies session tokens carrying a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(raw string) (string, error)
}

// UserLookup resolves a verified token subject to a user.
type UserLookup interface {
	UserByID(ctx context.Context, id string) (domain.User, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func RequireUser(tokens TokenIssuer, users UserLookup, logger *zap.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		userID, err := tokens.Verify(raw)
		if err != nil {
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		user, err := users.UserByID(r.Context(), userID)
		if err != nil {
			logger.Debug("token subject not found", zap.String("userId", userID), zap.Error(err))
			writeError(w, domain.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(app.WithCurrentUser(r.Context(), user)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
