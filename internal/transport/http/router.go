package http

import "net/http"

// NewRouter mounts health, API and websocket routes.
func NewRouter(api *APIHandler, ws *WSHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	api.Register(mux)
	mux.HandleFunc("GET /ws/leaderboard", ws.ServeLeaderboard)
	return mux
}
