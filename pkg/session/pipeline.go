// Package session orchestrates one record → identify → recommend cycle per
// user. A Session is an explicit state machine (see Next) driven by start and
// stop requests; Pipeline holds the identify and recommend chain that is also
// used for uploaded clips and by the CLI.
package session

import (
	"context"
	"fmt"

	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/music"
	"Song-Rec-Go/pkg/notify"
)

var log = logging.For("session")

// Pipeline identifies a capture and fetches recommendations for the match.
type Pipeline struct {
	Identifier  music.Identifier
	Recommender music.Recommender
	// Notifier receives feedback events; nil discards them.
	Notifier notify.Notifier
	// KeepCaptures leaves capture files on disk after identification.
	KeepCaptures bool
}

func (p *Pipeline) notify(e notify.Event) {
	if p.Notifier != nil {
		p.Notifier.Notify(e)
	}
}

// Identify uploads the capture and removes the file afterwards.
func (p *Pipeline) Identify(ctx context.Context, capture music.AudioCapture) (music.IdentifiedTrack, error) {
	if !p.KeepCaptures {
		defer func() {
			if err := capture.Remove(); err != nil {
				log.WithError(err).Warn("remove capture")
			}
		}()
	}
	track, err := p.Identifier.Identify(ctx, capture)
	if err != nil {
		p.notify(notify.Error)
		return music.IdentifiedTrack{}, fmt.Errorf("identify: %w", err)
	}
	return track, nil
}

// Recommend fetches the similarity list for track.
func (p *Pipeline) Recommend(ctx context.Context, track music.IdentifiedTrack) ([]music.RecommendedTrack, error) {
	recs, err := p.Recommender.Recommend(ctx, track)
	if err != nil {
		p.notify(notify.Warning)
		return nil, fmt.Errorf("recommend: %w", err)
	}
	p.notify(notify.Success)
	return recs, nil
}

// Run executes Identify then Recommend. On a recommendation failure the
// returned Result still carries the identified track.
func (p *Pipeline) Run(ctx context.Context, capture music.AudioCapture) (music.Result, error) {
	track, err := p.Identify(ctx, capture)
	if err != nil {
		return music.Result{}, err
	}
	res := music.Result{Track: track}
	recs, err := p.Recommend(ctx, track)
	if err != nil {
		return res, err
	}
	res.Recommendations = recs
	return res, nil
}
