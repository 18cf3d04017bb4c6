package recorder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// fakeDevice writes data into the capture file when the stream stops.
type fakeDevice struct {
	data    string
	openErr error
	stopErr error
	opened  int
}

type fakeStream struct {
	path string
	dev  *fakeDevice
}

func (d *fakeDevice) Open(ctx context.Context, path string) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened++
	return &fakeStream{path: path, dev: d}, nil
}

func (s *fakeStream) Stop() error {
	if s.dev.stopErr != nil {
		return s.dev.stopErr
	}
	return os.WriteFile(s.path, []byte(s.dev.data), 0o600)
}

type denied struct{}

func (denied) RequestMicrophone(context.Context) error { return errors.New("user said no") }

type countingSession struct {
	enableErr        error
	enabled, restore int
}

func (s *countingSession) EnableRecording(context.Context) error {
	s.enabled++
	return s.enableErr
}

func (s *countingSession) RestoreMode(context.Context) error {
	s.restore++
	return nil
}

func newRecorder(t *testing.T, d Device) *Recorder {
	r := New(d)
	r.Dir = t.TempDir()
	return r
}

func TestStartStop(t *testing.T) {
	sess := &countingSession{}
	r := newRecorder(t, &fakeDevice{data: "pcm"})
	r.Session = sess

	h, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !r.Active() || h.ID == "" {
		t.Fatalf("expected active recording with id, got %+v", h)
	}
	c, err := r.Stop(context.Background(), h)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if r.Active() {
		t.Error("recorder still active")
	}
	if c.Path != h.Path || c.Size != 3 || c.MIME != "audio/mp4" || !strings.HasSuffix(c.Path, ".m4a") {
		t.Errorf("unexpected capture %+v", c)
	}
	if sess.enabled != 1 || sess.restore != 1 {
		t.Errorf("audio session enabled %d restored %d", sess.enabled, sess.restore)
	}
}

// TestDoubleStart verifies a second start is rejected and the first capture
// still completes normally.
func TestDoubleStart(t *testing.T) {
	dev := &fakeDevice{data: "first"}
	r := newRecorder(t, dev)
	h, err := r.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if dev.opened != 1 {
		t.Errorf("device opened %d times", dev.opened)
	}
	c, err := r.Stop(context.Background(), h)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(c.Path)
	if string(data) != "first" {
		t.Errorf("first capture corrupted: %q", data)
	}
}

func TestPermissionDenied(t *testing.T) {
	r := newRecorder(t, &fakeDevice{})
	r.Permissions = denied{}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if r.Active() {
		t.Error("recorder must stay idle")
	}
}

func TestSessionConfigFailure(t *testing.T) {
	r := newRecorder(t, &fakeDevice{})
	r.Session = &countingSession{enableErr: errors.New("busy")}
	if _, err := r.Start(context.Background()); err == nil || r.Active() {
		t.Fatalf("expected failure and idle recorder, got %v", err)
	}
}

// TestOpenFailureCleansUp ensures the temp file is removed and the audio mode
// restored when the device cannot be opened.
func TestOpenFailureCleansUp(t *testing.T) {
	sess := &countingSession{}
	r := newRecorder(t, &fakeDevice{openErr: errors.New("no input")})
	r.Session = sess
	if _, err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(r.Dir)
	if len(entries) != 0 {
		t.Errorf("temp files left behind: %v", entries)
	}
	if sess.restore != 1 {
		t.Errorf("audio mode not restored")
	}
}

func TestStopErrors(t *testing.T) {
	r := newRecorder(t, &fakeDevice{stopErr: errors.New("device gone")})
	if _, err := r.Stop(context.Background(), nil); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
	h, err := r.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Stop(context.Background(), &Handle{}); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("foreign handle accepted: %v", err)
	}
	if _, err := r.Stop(context.Background(), h); err == nil {
		t.Fatal("expected stop error")
	}
	if r.Active() {
		t.Error("failed stop must still release the recorder")
	}
}

func TestFFmpegArgs(t *testing.T) {
	d := FFmpegDevice{Format: "pulse", Input: "default", Options: Options{SampleRate: 44100, Channels: 1, BitRate: 128000, MaxDuration: 1500 * time.Millisecond}}
	got := strings.Join(d.Args("/tmp/out.m4a"), " ")
	want := "-hide_banner -loglevel error -y -f pulse -i default -ac 1 -ar 44100 -b:a 128000 -t 1.5 /tmp/out.m4a"
	if got != want {
		t.Errorf("args\n got %s\nwant %s", got, want)
	}
	// Zero options fall back to the defaults and no format flag.
	got = strings.Join(FFmpegDevice{Input: ":0"}.Args("o.m4a"), " ")
	if !strings.Contains(got, "-i :0 -ac 1 -ar 44100") || strings.Contains(got, "-f ") || strings.Contains(got, "-t ") {
		t.Errorf("unexpected default args %s", got)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	d := FFmpegDevice{Binary: "definitely-not-ffmpeg-binary"}
	if _, err := d.Open(context.Background(), "x"); err == nil {
		t.Fatal("expected lookup error")
	}
}

// TestProcessStreamStop drives the stdin based stop protocol with cat, which
// exits once its input is closed.
func TestProcessStreamStop(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	s, err := startStream(exec.Command("cat"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}
