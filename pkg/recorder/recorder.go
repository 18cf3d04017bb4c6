// Package recorder captures short audio clips from an input device into
// temporary files. A Recorder allows at most one active capture; starting a
// second one fails with ErrAlreadyRecording and leaves the first untouched.
//
// Microphone permission and audio session configuration are modelled as small
// interfaces so platforms that need them can plug in real implementations.
// On a desktop or server the defaults grant permission and do nothing.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"Song-Rec-Go/pkg/logging"
	"Song-Rec-Go/pkg/music"
)

var (
	ErrAlreadyRecording = errors.New("recording already in progress")
	ErrNotRecording     = errors.New("no matching recording in progress")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

var log = logging.For("recorder")

// Permissions grants access to the microphone.
type Permissions interface {
	RequestMicrophone(ctx context.Context) error
}

// AudioSession switches the platform audio mode in and out of recording.
type AudioSession interface {
	EnableRecording(ctx context.Context) error
	RestoreMode(ctx context.Context) error
}

// Stream is an open capture writing to a file.
type Stream interface {
	// Stop finalizes the file and releases the device.
	Stop() error
}

// Device opens capture streams writing to path.
type Device interface {
	Open(ctx context.Context, path string) (Stream, error)
}

// Granted is a Permissions that always allows recording.
type Granted struct{}

func (Granted) RequestMicrophone(context.Context) error { return nil }

// NoopSession is an AudioSession for platforms without an audio mode.
type NoopSession struct{}

func (NoopSession) EnableRecording(context.Context) error { return nil }
func (NoopSession) RestoreMode(context.Context) error     { return nil }

// Handle identifies an active capture.
type Handle struct {
	ID      string
	Path    string
	Started time.Time

	stream Stream
}

// Recorder coordinates permission, audio session and device.
type Recorder struct {
	Device      Device
	Permissions Permissions
	Session     AudioSession
	// Dir is where capture files are created; empty means os.TempDir.
	Dir string
	// Extension of capture files, including the dot.
	Extension string

	mu     sync.Mutex
	active *Handle
}

// New returns a Recorder for device with default permissions and session.
func New(device Device) *Recorder {
	return &Recorder{
		Device:      device,
		Permissions: Granted{},
		Session:     NoopSession{},
		Extension:   DefaultOptions.Extension,
	}
}

// Active reports whether a capture is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

// Start acquires the microphone and begins a capture.
func (r *Recorder) Start(ctx context.Context) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		return nil, ErrAlreadyRecording
	}
	if r.Device == nil {
		return nil, errors.New("recorder has no device")
	}
	if r.Permissions != nil {
		if err := r.Permissions.RequestMicrophone(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	if r.Session != nil {
		if err := r.Session.EnableRecording(ctx); err != nil {
			return nil, fmt.Errorf("configure audio session: %w", err)
		}
	}

	f, err := os.CreateTemp(r.Dir, "capture-*"+r.Extension)
	if err != nil {
		r.restore(ctx)
		return nil, fmt.Errorf("create capture file: %w", err)
	}
	path := f.Name()
	f.Close()

	stream, err := r.Device.Open(ctx, path)
	if err != nil {
		os.Remove(path)
		r.restore(ctx)
		return nil, fmt.Errorf("open capture device: %w", err)
	}
	h := &Handle{ID: uuid.New().String(), Path: path, Started: time.Now(), stream: stream}
	r.active = h
	log.WithField("capture", h.ID).WithField("path", path).Info("recording started")
	return h, nil
}

// Stop finalizes the capture started with h and returns it. The caller owns
// the returned file.
func (r *Recorder) Stop(ctx context.Context, h *Handle) (music.AudioCapture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h == nil || r.active != h {
		return music.AudioCapture{}, ErrNotRecording
	}
	r.active = nil
	stopErr := h.stream.Stop()
	r.restore(ctx)
	if stopErr != nil {
		os.Remove(h.Path)
		return music.AudioCapture{}, fmt.Errorf("stop capture: %w", stopErr)
	}
	info, err := os.Stat(h.Path)
	if err != nil {
		return music.AudioCapture{}, fmt.Errorf("stat capture: %w", err)
	}
	c := music.AudioCapture{Path: h.Path, Size: info.Size(), MIME: mimeFor(h.Path)}
	log.WithField("capture", h.ID).WithField("bytes", c.Size).WithField("elapsed", time.Since(h.Started).Round(time.Millisecond)).Info("recording stopped")
	return c, nil
}

func (r *Recorder) restore(ctx context.Context) {
	if r.Session == nil {
		return
	}
	if err := r.Session.RestoreMode(ctx); err != nil {
		log.WithError(err).Warn("restore audio mode")
	}
}

func mimeFor(path string) string {
	ext := filepath.Ext(path)
	if ext == ".m4a" {
		return "audio/mp4"
	}
	return mime.TypeByExtension(ext)
}
