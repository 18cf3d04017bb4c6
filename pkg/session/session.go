package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"Song-Rec-Go/pkg/music"
	"Song-Rec-Go/pkg/notify"
	"Song-Rec-Go/pkg/recorder"
)

// Capturer starts and stops recordings. *recorder.Recorder implements it.
type Capturer interface {
	Start(ctx context.Context) (*recorder.Handle, error)
	Stop(ctx context.Context, h *recorder.Handle) (music.AudioCapture, error)
}

// Snapshot is a copy of a session's observable state.
type Snapshot struct {
	ID              string                   `json:"id"`
	State           State                    `json:"state"`
	Track           *music.IdentifiedTrack   `json:"track,omitempty"`
	Recommendations []music.RecommendedTrack `json:"recommendations,omitempty"`
	Alert           *Alert                   `json:"alert,omitempty"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// Session is one user's recording cycle. Methods are safe for concurrent use;
// the pipeline runs without holding the lock so Snapshot stays responsive
// while a clip is being identified.
type Session struct {
	ID string

	capturer Capturer
	pipeline *Pipeline

	mu      sync.Mutex
	state   State
	handle  *recorder.Handle
	track   *music.IdentifiedTrack
	recs    []music.RecommendedTrack
	alert   *Alert
	updated time.Time
}

// New returns an idle session.
func New(capturer Capturer, pipeline *Pipeline) *Session {
	return &Session{ID: uuid.New().String(), capturer: capturer, pipeline: pipeline, updated: time.Now()}
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{ID: s.ID, State: s.state, UpdatedAt: s.updated}
	if s.track != nil {
		t := *s.track
		snap.Track = &t
	}
	if s.recs != nil {
		snap.Recommendations = append([]music.RecommendedTrack(nil), s.recs...)
	}
	if s.alert != nil {
		a := *s.alert
		snap.Alert = &a
	}
	return snap
}

// apply performs the transition for e. Callers hold s.mu.
func (s *Session) apply(e Event) error {
	to, err := Next(s.state, e)
	if err != nil {
		return err
	}
	log.WithField("session", s.ID).WithField("event", e.String()).WithField("from", s.state.String()).WithField("to", to.String()).Debug("transition")
	s.state = to
	s.updated = time.Now()
	return nil
}

// Start begins recording. Feedback is played before the microphone is
// requested. When the recorder refuses (permission, busy microphone, device
// failure) the error is logged and returned, previous results are dropped and
// the session is back in Idle with an alert.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := Next(s.state, StartPressed); err != nil {
		return err
	}
	s.pipeline.notify(notify.Success)
	s.track, s.recs, s.alert = nil, nil, nil
	h, err := s.capturer.Start(ctx)
	if err != nil {
		alert := AlertFor(err)
		log.WithError(err).WithField("session", s.ID).WithField("from", s.state.String()).Error("failed to start recording")
		s.alert = &alert
		s.state = Idle
		s.updated = time.Now()
		return err
	}
	s.handle = h
	return s.apply(StartPressed)
}

// Stop ends the recording and runs identification and recommendation. The
// returned snapshot reflects the final state (Results or Error).
func (s *Session) Stop(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if err := s.apply(StopPressed); err != nil {
		s.mu.Unlock()
		return s.Snapshot(), err
	}
	h := s.handle
	s.handle = nil
	s.mu.Unlock()

	capture, err := s.capturer.Stop(ctx, h)
	if err != nil {
		return s.fail(IdentifyFailed, err), nil
	}
	track, err := s.pipeline.Identify(ctx, capture)
	if err != nil {
		return s.fail(IdentifyFailed, err), nil
	}

	s.mu.Lock()
	s.track = &track
	s.apply(IdentifyResolved)
	s.mu.Unlock()

	recs, err := s.pipeline.Recommend(ctx, track)
	if err != nil {
		return s.fail(RecommendationsFailed, err), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = recs
	if s.recs == nil {
		s.recs = []music.RecommendedTrack{}
	}
	s.apply(RecommendationsResolved)
	return s.snapshotLocked(), nil
}

func (s *Session) fail(e Event, err error) Snapshot {
	alert := AlertFor(err)
	log.WithError(err).WithField("session", s.ID).WithField("alert", alert.Title).Warn("cycle failed")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alert = &alert
	s.apply(e)
	return s.snapshotLocked()
}

// Reset abandons any recording in progress and returns to Idle.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.apply(Reset); err != nil {
		return err
	}
	if s.handle != nil {
		capture, err := s.capturer.Stop(ctx, s.handle)
		if err != nil {
			log.WithError(err).WithField("session", s.ID).Warn("stop abandoned recording")
		} else if err := capture.Remove(); err != nil {
			log.WithError(err).Warn("remove abandoned capture")
		}
		s.handle = nil
	}
	s.track, s.recs, s.alert = nil, nil, nil
	return nil
}
