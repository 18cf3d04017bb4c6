// This file contains the endpoints driving server-side recording sessions.
// A client creates a session, starts and stops it, and polls its snapshot.
package handlers

import (
	"net/http"

	"Song-Rec-Go/pkg/session"
)

// lookupSession resolves the {id} path value or writes a 404.
func (app *Application) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	if app.Sessions == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "recording not configured")
		return nil, false
	}
	s, ok := app.Sessions.Get(r.PathValue("id"))
	if !ok {
		respondJSONError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return s, true
}

// CreateSession registers a new idle session.
func (app *Application) CreateSession(w http.ResponseWriter, r *http.Request) {
	if app.Sessions == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "recording not configured")
		return
	}
	s := app.Sessions.Create()
	respondJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns the session snapshot.
func (app *Application) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := app.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// StartSession begins recording for the session.
func (app *Application) StartSession(w http.ResponseWriter, r *http.Request) {
	s, ok := app.lookupSession(w, r)
	if !ok {
		return
	}
	if err := s.Start(r.Context()); err != nil {
		alert := session.AlertFor(err)
		respondJSON(w, statusFor(err), map[string]any{"error": err.Error(), "alert": alert, "session": s.Snapshot()})
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// StopSession stops recording and runs identification and recommendation.
// The response is the final snapshot; failures are reported through its
// alert rather than the status code.
func (app *Application) StopSession(w http.ResponseWriter, r *http.Request) {
	s, ok := app.lookupSession(w, r)
	if !ok {
		return
	}
	snap, err := s.Stop(r.Context())
	if err != nil {
		respondJSON(w, statusFor(err), map[string]any{"error": err.Error(), "session": snap})
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// ResetSession abandons any recording and returns the session to idle.
func (app *Application) ResetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := app.lookupSession(w, r)
	if !ok {
		return
	}
	if err := s.Reset(r.Context()); err != nil {
		respondJSON(w, statusFor(err), map[string]any{"error": err.Error(), "session": s.Snapshot()})
		return
	}
	respondJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession forgets a session.
func (app *Application) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if app.Sessions == nil || !app.Sessions.Delete(r.Context(), r.PathValue("id")) {
		respondJSONError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
