// Package handlers exposes the identification pipeline over HTTP: an upload
// endpoint that identifies a clip and returns recommendations, a
// recommendations endpoint for an already known song and per-session
// record/stop endpoints driving the server's microphone.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/metrics"
	"Song-Rec-Go/pkg/music"
	"Song-Rec-Go/pkg/recorder"
	"Song-Rec-Go/pkg/session"
	"Song-Rec-Go/pkg/shazam"
	"Song-Rec-Go/pkg/spotify"
)

var log = logging.For("handlers")

// Application bundles the dependencies used by the HTTP handlers.
type Application struct {
	Pipeline *session.Pipeline
	Sessions *session.Manager
	Metrics  *metrics.Metrics
	// MaxUploadBytes caps the clip size accepted by Identify.
	MaxUploadBytes int64
	// TempDir receives uploaded clips; empty means os.TempDir.
	TempDir string
}

// identifyResponse is returned by Identify. Track is set whenever the clip
// was recognised, even if the catalog lookup failed afterwards.
type identifyResponse struct {
	Track           *music.IdentifiedTrack   `json:"track,omitempty"`
	Recommendations []music.RecommendedTrack `json:"recommendations"`
	Alert           *session.Alert           `json:"alert,omitempty"`
}

// Home renders a small page with an upload form.
func (app *Application) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `
		<h1>Song-Rec-Go</h1>
		<p>Upload a short recording of the song that is playing.</p>
		<form action="/api/identify" method="post" enctype="multipart/form-data">
			<input type="file" name="audio" accept="audio/*">
			<button type="submit">Identify</button>
		</form>
	`)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shazam.ErrNoMatch), errors.Is(err, spotify.ErrTrackNotFound):
		return http.StatusNotFound
	case errors.Is(err, shazam.ErrRecordingTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, shazam.ErrEmptyCapture):
		return http.StatusBadRequest
	case errors.Is(err, recorder.ErrAlreadyRecording), errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, recorder.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusBadGateway
	}
}

// Identify accepts an audio clip either as a multipart field named "audio"
// or as the raw request body, identifies it and returns recommendations.
func (app *Application) Identify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	capture, err := app.saveUpload(w, r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			alert := session.AlertFor(shazam.ErrRecordingTooLong)
			respondJSON(w, http.StatusRequestEntityTooLarge, identifyResponse{Alert: &alert, Recommendations: []music.RecommendedTrack{}})
			return
		}
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := app.Pipeline.Run(r.Context(), capture)
	if err != nil {
		log.WithError(err).Warn("identify request failed")
		alert := session.AlertFor(err)
		resp := identifyResponse{Alert: &alert, Recommendations: []music.RecommendedTrack{}}
		if res.Track.Valid() {
			resp.Track = &res.Track
		}
		respondJSON(w, statusFor(err), resp)
		return
	}
	recs := res.Recommendations
	if recs == nil {
		recs = []music.RecommendedTrack{}
	}
	respondJSON(w, http.StatusOK, identifyResponse{Track: &res.Track, Recommendations: recs})
}

// saveUpload copies the clip to a temporary file. The body is capped at
// MaxUploadBytes.
func (app *Application) saveUpload(w http.ResponseWriter, r *http.Request) (music.AudioCapture, error) {
	limit := app.MaxUploadBytes
	if limit <= 0 {
		limit = 8 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var (
		src  io.Reader = r.Body
		name string
		ct   = r.Header.Get("Content-Type")
	)
	if mt, _, _ := mime.ParseMediaType(ct); strings.HasPrefix(mt, "multipart/") {
		file, hdr, err := r.FormFile("audio")
		if err != nil {
			return music.AudioCapture{}, err
		}
		defer file.Close()
		src, name, ct = file, hdr.Filename, hdr.Header.Get("Content-Type")
	}

	f, err := os.CreateTemp(app.TempDir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return music.AudioCapture{}, err
	}
	defer f.Close()
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(f.Name())
		return music.AudioCapture{}, err
	}
	return music.AudioCapture{Path: f.Name(), Size: n, MIME: ct}, nil
}

// RecommendationsJSON returns recommendations for a known title and artist,
// read from the query string on GET or a JSON body on POST.
func (app *Application) RecommendationsJSON(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
	}
	switch r.Method {
	case http.MethodGet:
		req.Title = r.URL.Query().Get("title")
		req.Artist = r.URL.Query().Get("artist")
	case http.MethodPost:
		if err := decodeJSON(w, r, &req); err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		respondJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	track := music.IdentifiedTrack{Title: strings.TrimSpace(req.Title), Artist: strings.TrimSpace(req.Artist)}
	if !track.Valid() {
		respondJSONError(w, http.StatusBadRequest, "title is required")
		return
	}
	recs, err := app.Pipeline.Recommend(r.Context(), track)
	if err != nil {
		log.WithError(err).WithField("title", track.Title).Warn("recommendations failed")
		respondJSONError(w, statusFor(err), session.AlertFor(err).Title)
		return
	}
	if recs == nil {
		recs = []music.RecommendedTrack{}
	}
	respondJSON(w, http.StatusOK, recs)
}
