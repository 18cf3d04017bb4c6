package recorder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options controls the encoding of captures.
type Options struct {
	Extension   string
	SampleRate  int
	Channels    int
	BitRate     int
	MaxDuration time.Duration
}

// DefaultOptions records mono AAC at 44.1 kHz and 128 kbit/s.
var DefaultOptions = Options{
	Extension:  ".m4a",
	SampleRate: 44100,
	Channels:   1,
	BitRate:    128000,
}

// stopTimeout bounds how long Stop waits for ffmpeg to finalize the file.
const stopTimeout = 5 * time.Second

// FFmpegDevice captures from an OS input through an ffmpeg child process.
// Format and Input are passed as -f and -i, e.g. "pulse" and "default" on
// Linux or "avfoundation" and ":0" on macOS.
type FFmpegDevice struct {
	Binary  string
	Format  string
	Input   string
	Options Options
}

// Args returns the ffmpeg command line writing to path.
func (d FFmpegDevice) Args(path string) []string {
	o := d.Options
	if o.SampleRate == 0 {
		o = DefaultOptions
	}
	args := []string{"-hide_banner", "-loglevel", "error", "-y"}
	if d.Format != "" {
		args = append(args, "-f", d.Format)
	}
	args = append(args, "-i", d.Input,
		"-ac", strconv.Itoa(o.Channels),
		"-ar", strconv.Itoa(o.SampleRate),
		"-b:a", strconv.Itoa(o.BitRate))
	if o.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(o.MaxDuration.Seconds(), 'f', -1, 64))
	}
	return append(args, path)
}

// Open starts ffmpeg. The process is not bound to ctx because a capture
// outlives the request that started it.
func (d FFmpegDevice) Open(ctx context.Context, path string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}
	return startStream(exec.Command(bin, d.Args(path)...))
}

// processStream is a running capture process stopped by writing "q" to its
// standard input, which makes ffmpeg flush and close the output file.
type processStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	done   chan error
	once   sync.Once
	err    error
}

func startStream(cmd *exec.Cmd) (*processStream, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	s := &processStream{cmd: cmd, stdin: stdin, stderr: &bytes.Buffer{}, done: make(chan error, 1)}
	cmd.Stderr = s.stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go func() { s.done <- cmd.Wait() }()
	return s, nil
}

func (s *processStream) Stop() error {
	s.once.Do(func() {
		// The process may already have exited after MaxDuration; write
		// errors are expected then.
		io.WriteString(s.stdin, "q\n")
		s.stdin.Close()
		select {
		case err := <-s.done:
			if err != nil {
				s.err = fmt.Errorf("%w: %s", err, strings.TrimSpace(s.stderr.String()))
			}
		case <-time.After(stopTimeout):
			s.cmd.Process.Kill()
			<-s.done
			s.err = fmt.Errorf("capture process did not exit within %s", stopTimeout)
		}
	})
	return s.err
}
