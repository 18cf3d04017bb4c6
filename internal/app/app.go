// Package app assembles the identification pipeline from a Config. Both the
// web server and the CLI build their components through New so they share one
// wiring.
package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"Song-Rec-Go/pkg/config"
	"Song-Rec-Go/pkg/metrics"
	"Song-Rec-Go/pkg/notify"
	"Song-Rec-Go/pkg/recorder"
	"Song-Rec-Go/pkg/session"
	"Song-Rec-Go/pkg/shazam"
	"Song-Rec-Go/pkg/spotify"
)

// Services holds the constructed components. Fields may be adjusted before
// first use, e.g. to point the upstream clients at test servers.
type Services struct {
	Config   config.Config
	Metrics  *metrics.Metrics
	Shazam   *shazam.Client
	Spotify  *spotify.SpotifyClient
	Recorder *recorder.Recorder
	Notifier *notify.Async
	Pipeline *session.Pipeline
}

// New builds the services for cfg. reg may be nil, in which case no metrics
// are recorded.
func New(cfg config.Config, reg *prometheus.Registry) *Services {
	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	id := &shazam.Client{
		Key:     cfg.FingerprintAPIKey,
		Host:    cfg.FingerprintAPIHost,
		Metrics: m,
	}
	catalog := spotify.NewSpotifyClient(cfg.CatalogClientID, cfg.CatalogClientSecret)
	catalog.Metrics = m
	if cfg.HTTPTimeout > 0 {
		id.HTTP = &http.Client{Timeout: cfg.HTTPTimeout}
		catalog.HTTP = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	opts := recorder.DefaultOptions
	opts.MaxDuration = cfg.RecordDuration
	rec := recorder.New(recorder.FFmpegDevice{
		Format:  cfg.RecordFormat,
		Input:   cfg.RecordInput,
		Options: opts,
	})

	n := notify.NewAsync(notify.LogNotifier{}, 0)
	return &Services{
		Config:   cfg,
		Metrics:  m,
		Shazam:   id,
		Spotify:  catalog,
		Recorder: rec,
		Notifier: n,
		Pipeline: &session.Pipeline{Identifier: id, Recommender: catalog, Notifier: n},
	}
}

// Close flushes pending feedback events.
func (s *Services) Close() {
	s.Notifier.Close()
}
