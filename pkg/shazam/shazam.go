// Package shazam implements music.Identifier on top of the Shazam song
// detection endpoint published through RapidAPI. The capture is uploaded as a
// base64 string in a single POST; the response either carries a track object
// (a match) or not.
//
// Nothing is retried. Callers decide how to surface ErrNoMatch and
// ErrRecordingTooLong to the user.
package shazam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/metrics"
	"Song-Rec-Go/pkg/music"
)

// DetectPath is the song detection endpoint relative to the API host.
const DetectPath = "/songs/v2/detect"

var (
	// ErrNoMatch is returned when the service did not recognise the audio.
	ErrNoMatch = errors.New("no track found")
	// ErrRecordingTooLong maps the service's 413 response.
	ErrRecordingTooLong = errors.New("recording too long")
	// ErrEmptyCapture is returned for captures without audio data.
	ErrEmptyCapture = errors.New("empty capture")
)

// StatusError reports an unexpected HTTP status from the service.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("shazam detect error: %s", e.Status)
}

var log = logging.For("shazam")

// Client talks to the detection API. Key and Host are the RapidAPI
// credentials. BaseURL defaults to https://Host and exists so tests can point
// the client at an httptest server. If HTTP is nil a client with a 30 second
// timeout is used since uploads are larger than the catalog calls.
type Client struct {
	Key     string
	Host    string
	BaseURL string
	HTTP    *http.Client
	Metrics *metrics.Metrics
}

var defaultHTTP = &http.Client{Timeout: 30 * time.Second}

// Ensure interface compliance at compile time.
var _ music.Identifier = (*Client)(nil)

// detectResponse mirrors the subset of the detection payload we use.
type detectResponse struct {
	Track *struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"track"`
}

// Identify reads the capture from disk and submits it for detection.
func (c *Client) Identify(ctx context.Context, capture music.AudioCapture) (music.IdentifiedTrack, error) {
	data, err := os.ReadFile(capture.Path)
	if err != nil {
		return music.IdentifiedTrack{}, fmt.Errorf("read capture: %w", err)
	}
	return c.IdentifyBytes(ctx, data)
}

// IdentifyBytes submits raw audio bytes for detection. The subtitle of the
// matched track is reported as the artist.
func (c *Client) IdentifyBytes(ctx context.Context, data []byte) (music.IdentifiedTrack, error) {
	if len(data) == 0 {
		return music.IdentifiedTrack{}, ErrEmptyCapture
	}
	hc := c.HTTP
	if hc == nil {
		hc = defaultHTTP
	}
	base := c.BaseURL
	if base == "" {
		base = "https://" + c.Host
	}
	body := base64.StdEncoding.EncodeToString(data)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(base, "/")+DetectPath, strings.NewReader(body))
	if err != nil {
		return music.IdentifiedTrack{}, err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("X-RapidAPI-Key", c.Key)
	req.Header.Set("X-RapidAPI-Host", c.Host)

	start := time.Now()
	resp, err := hc.Do(req)
	c.Metrics.Since("shazam", start)
	if err != nil {
		c.Metrics.ObserveIdentify(metrics.OutcomeError)
		return music.IdentifiedTrack{}, fmt.Errorf("shazam detect: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		c.Metrics.ObserveIdentify(metrics.OutcomeTooLong)
		return music.IdentifiedTrack{}, ErrRecordingTooLong
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.Metrics.ObserveIdentify(metrics.OutcomeError)
		// Drain a little of the body so the error is visible in the logs.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.WithField("status", resp.StatusCode).WithField("body", string(bytes.TrimSpace(snippet))).Warn("detect request rejected")
		return music.IdentifiedTrack{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var payload detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.Metrics.ObserveIdentify(metrics.OutcomeError)
		return music.IdentifiedTrack{}, fmt.Errorf("decode detect response: %w", err)
	}
	if payload.Track == nil {
		c.Metrics.ObserveIdentify(metrics.OutcomeNoMatch)
		return music.IdentifiedTrack{}, ErrNoMatch
	}
	if payload.Track.Title == "" {
		c.Metrics.ObserveIdentify(metrics.OutcomeError)
		return music.IdentifiedTrack{}, errors.New("detect response: track without title")
	}
	c.Metrics.ObserveIdentify(metrics.OutcomeMatch)
	track := music.IdentifiedTrack{Title: payload.Track.Title, Artist: payload.Track.Subtitle}
	log.WithField("title", track.Title).WithField("artist", track.Artist).Debug("track identified")
	return track, nil
}
