package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"Song-Rec-Go/pkg/music"
	"Song-Rec-Go/pkg/notify"
	"Song-Rec-Go/pkg/recorder"
	"Song-Rec-Go/pkg/shazam"
	"Song-Rec-Go/pkg/spotify"
)

type fakeCapturer struct {
	dir      string
	startErr error
	stopErr  error
	stops    int
	last     string
}

func (f *fakeCapturer) Start(context.Context) (*recorder.Handle, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &recorder.Handle{ID: "h", Path: filepath.Join(f.dir, "clip.m4a")}, nil
}

func (f *fakeCapturer) Stop(_ context.Context, h *recorder.Handle) (music.AudioCapture, error) {
	f.stops++
	if f.stopErr != nil {
		return music.AudioCapture{}, f.stopErr
	}
	if err := os.WriteFile(h.Path, []byte("audio"), 0o600); err != nil {
		return music.AudioCapture{}, err
	}
	f.last = h.Path
	return music.AudioCapture{Path: h.Path, Size: 5}, nil
}

type fakeIdentifier struct {
	track music.IdentifiedTrack
	err   error
}

func (f fakeIdentifier) Identify(context.Context, music.AudioCapture) (music.IdentifiedTrack, error) {
	return f.track, f.err
}

type fakeRecommender struct {
	recs []music.RecommendedTrack
	err  error
	got  music.IdentifiedTrack
}

func (f *fakeRecommender) Recommend(_ context.Context, t music.IdentifiedTrack) ([]music.RecommendedTrack, error) {
	f.got = t
	return f.recs, f.err
}

type eventLog struct {
	mu     sync.Mutex
	events []notify.Event
}

func (l *eventLog) Notify(e notify.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

var song = music.IdentifiedTrack{Title: "Song", Artist: "Artist"}

func threeRecs() []music.RecommendedTrack {
	return []music.RecommendedTrack{{Name: "A", Artist: "X"}, {Name: "B", Artist: "Y"}, {Name: "C", Artist: "Z"}}
}

func newSession(t *testing.T, id fakeIdentifier, rec *fakeRecommender) (*Session, *fakeCapturer, *eventLog) {
	t.Helper()
	fc := &fakeCapturer{dir: t.TempDir()}
	events := &eventLog{}
	p := &Pipeline{Identifier: id, Recommender: rec, Notifier: events}
	return New(fc, p), fc, events
}

// TestSessionResults runs a full cycle and expects the catalog's three tracks
// in their original order.
func TestSessionResults(t *testing.T) {
	rec := &fakeRecommender{recs: threeRecs()}
	s, fc, events := newSession(t, fakeIdentifier{track: song}, rec)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != Recording {
		t.Fatalf("state %s", s.State())
	}
	snap, err := s.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if snap.State != Results || snap.Alert != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Track == nil || *snap.Track != song || rec.got != song {
		t.Errorf("track not passed through: %+v %+v", snap.Track, rec.got)
	}
	want := threeRecs()
	if len(snap.Recommendations) != 3 {
		t.Fatalf("expected 3 recommendations, got %+v", snap.Recommendations)
	}
	for i := range want {
		if snap.Recommendations[i] != want[i] {
			t.Errorf("position %d: got %+v want %+v", i, snap.Recommendations[i], want[i])
		}
	}
	if _, err := os.Stat(fc.last); !os.IsNotExist(err) {
		t.Errorf("capture not removed after upload")
	}
	if len(events.events) != 2 || events.events[0] != notify.Success || events.events[1] != notify.Success {
		t.Errorf("unexpected feedback %v", events.events)
	}
}

func TestSessionNoMatch(t *testing.T) {
	rec := &fakeRecommender{}
	s, _, events := newSession(t, fakeIdentifier{err: shazam.ErrNoMatch}, rec)
	s.Start(context.Background())
	snap, err := s.Stop(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != Error || snap.Alert == nil || snap.Alert.Title != "No track found" || snap.Alert.Message != "Please try again" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Track != nil || rec.got.Valid() {
		t.Error("recommender must not run without a match")
	}
	if events.events[len(events.events)-1] != notify.Error {
		t.Errorf("expected error feedback, got %v", events.events)
	}
}

// TestSessionTooLong checks the 413 mapping: an alert and no results.
func TestSessionTooLong(t *testing.T) {
	s, _, _ := newSession(t, fakeIdentifier{err: shazam.ErrRecordingTooLong}, &fakeRecommender{})
	s.Start(context.Background())
	snap, _ := s.Stop(context.Background())
	if snap.State != Error || snap.Alert.Title != "Recording too long" || snap.Recommendations != nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSessionRecommendationsFailed(t *testing.T) {
	rec := &fakeRecommender{err: spotify.ErrTrackNotFound}
	s, _, _ := newSession(t, fakeIdentifier{track: song}, rec)
	s.Start(context.Background())
	snap, _ := s.Stop(context.Background())
	if snap.State != Error || snap.Track == nil || snap.Track.Title != "Song" {
		t.Fatalf("identified track should survive a catalog failure: %+v", snap)
	}
	if snap.Alert.Title != "Song not in catalog" {
		t.Errorf("unexpected alert %+v", snap.Alert)
	}
}

func TestSessionStopCaptureFailure(t *testing.T) {
	s, fc, _ := newSession(t, fakeIdentifier{track: song}, &fakeRecommender{})
	fc.stopErr = errors.New("device gone")
	s.Start(context.Background())
	snap, _ := s.Stop(context.Background())
	if snap.State != Error || snap.Alert.Title != "Something went wrong" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestSessionStartTwice(t *testing.T) {
	s, _, _ := newSession(t, fakeIdentifier{track: song}, &fakeRecommender{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if s.State() != Recording {
		t.Errorf("state changed to %s", s.State())
	}
}

// TestSessionStartFailure leaves the session idle with an alert when the
// recorder refuses. Feedback has already played by then.
func TestSessionStartFailure(t *testing.T) {
	s, fc, events := newSession(t, fakeIdentifier{}, &fakeRecommender{})
	fc.startErr = recorder.ErrPermissionDenied
	if err := s.Start(context.Background()); !errors.Is(err, recorder.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != Idle || snap.Alert == nil || snap.Alert.Title != "Microphone unavailable" {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if len(events.events) != 1 || events.events[0] != notify.Success {
		t.Errorf("expected feedback before the microphone request, got %v", events.events)
	}
}

// TestSessionStartFailureAfterResults drops stale results when a new cycle
// cannot start.
func TestSessionStartFailureAfterResults(t *testing.T) {
	s, fc, _ := newSession(t, fakeIdentifier{track: song}, &fakeRecommender{recs: threeRecs()})
	s.Start(context.Background())
	if snap, _ := s.Stop(context.Background()); snap.State != Results {
		t.Fatalf("expected results, got %s", snap.State)
	}

	fc.startErr = recorder.ErrAlreadyRecording
	if err := s.Start(context.Background()); !errors.Is(err, recorder.ErrAlreadyRecording) {
		t.Fatalf("expected busy error, got %v", err)
	}
	snap := s.Snapshot()
	if snap.State != Idle || snap.Track != nil || snap.Recommendations != nil {
		t.Fatalf("stale results kept: %+v", snap)
	}
	if snap.Alert == nil || snap.Alert.Title != "Microphone busy" {
		t.Errorf("unexpected alert %+v", snap.Alert)
	}

	fc.startErr = nil
	if err := s.Start(context.Background()); err != nil || s.State() != Recording {
		t.Fatalf("retry from idle failed: %v %s", err, s.State())
	}
	if s.Snapshot().Alert != nil {
		t.Error("alert not cleared on a new cycle")
	}
}

func TestSessionStopWhenIdle(t *testing.T) {
	s, fc, _ := newSession(t, fakeIdentifier{}, &fakeRecommender{})
	if _, err := s.Stop(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if fc.stops != 0 {
		t.Error("capturer should not be stopped")
	}
}

func TestSessionReset(t *testing.T) {
	s, fc, _ := newSession(t, fakeIdentifier{track: song}, &fakeRecommender{recs: threeRecs()})
	s.Start(context.Background())
	if err := s.Reset(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.State() != Idle || fc.stops != 1 {
		t.Fatalf("state %s stops %d", s.State(), fc.stops)
	}
	if _, err := os.Stat(fc.last); !os.IsNotExist(err) {
		t.Error("abandoned capture not removed")
	}
	// A new cycle after results clears the previous output.
	s.Start(context.Background())
	s.Stop(context.Background())
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap := s.Snapshot()
	if snap.Track != nil || snap.Recommendations != nil {
		t.Errorf("stale results kept: %+v", snap)
	}
}

func TestPipelineRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.m4a")
	os.WriteFile(path, []byte("x"), 0o600)
	p := &Pipeline{Identifier: fakeIdentifier{track: song}, Recommender: &fakeRecommender{recs: threeRecs()}, KeepCaptures: true}
	res, err := p.Run(context.Background(), music.AudioCapture{Path: path})
	if err != nil || res.Track != song || len(res.Recommendations) != 3 {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("KeepCaptures should leave the file")
	}

	p.Recommender = &fakeRecommender{err: errors.New("down")}
	res, err = p.Run(context.Background(), music.AudioCapture{Path: path})
	if err == nil || res.Track != song {
		t.Fatalf("expected partial result, got %+v %v", res, err)
	}
}

func TestManager(t *testing.T) {
	m := NewManager(&fakeCapturer{dir: t.TempDir()}, &Pipeline{Identifier: fakeIdentifier{track: song}, Recommender: &fakeRecommender{}}, nil)
	a := m.Create()
	b := m.Create()
	if a.ID == b.ID {
		t.Fatal("session ids collide")
	}
	if got, ok := m.Get(a.ID); !ok || got != a {
		t.Fatal("session not found")
	}
	b.Start(context.Background())

	if n := m.Prune(time.Now().Add(time.Minute)); n != 1 {
		t.Errorf("expected only the idle session pruned, got %d", n)
	}
	if _, ok := m.Get(a.ID); ok {
		t.Error("idle session survived prune")
	}
	if !m.Delete(context.Background(), b.ID) || m.Len() != 0 {
		t.Error("delete failed")
	}
	if m.Delete(context.Background(), b.ID) {
		t.Error("second delete should report false")
	}
}

func TestAlertFor(t *testing.T) {
	if AlertFor(recorder.ErrAlreadyRecording).Title != "Microphone busy" {
		t.Error("busy alert")
	}
	if AlertFor(shazam.ErrEmptyCapture).Title != "Nothing recorded" {
		t.Error("empty alert")
	}
	if AlertFor(errors.New("x")).Title != "Something went wrong" {
		t.Error("default alert")
	}
}
