package handlers

import "net/http"

// Routes registers every endpoint on a new mux wrapped in the shared
// middleware.
func (app *Application) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", app.Home)
	mux.HandleFunc("/api/identify", app.Identify)
	mux.HandleFunc("/api/recommendations", app.RecommendationsJSON)
	mux.HandleFunc("POST /api/sessions", app.CreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", app.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", app.DeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/start", app.StartSession)
	mux.HandleFunc("POST /api/sessions/{id}/stop", app.StopSession)
	mux.HandleFunc("POST /api/sessions/{id}/reset", app.ResetSession)
	mux.Handle("GET /metrics", app.Metrics.Handler())
	return LogRequests(SecurityHeaders(mux))
}
