package audio

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"voxchat/models"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeStream hands out queued chunks, then idles until closed.
type fakeStream struct {
	mu      sync.Mutex
	chunks  [][]byte
	readErr error
	closed  bool
	served  chan struct{}
}

func (s *fakeStream) Read() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.chunks) > 0 {
		c := s.chunks[0]
		s.chunks = s.chunks[1:]
		if len(s.chunks) == 0 && s.readErr == nil {
			close(s.served)
		}
		return c, nil
	}
	if s.readErr != nil {
		err := s.readErr
		s.readErr = nil
		close(s.served)
		return nil, err
	}
	time.Sleep(time.Millisecond)
	return nil, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDevice struct {
	streams []*fakeStream
	openErr error
	opened  int
}

func (d *fakeDevice) Open(sampleRate int) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := d.streams[d.opened]
	d.opened++
	return s, nil
}

func newFakeStream(readErr error, chunks ...[]byte) *fakeStream {
	s := &fakeStream{chunks: chunks, readErr: readErr, served: make(chan struct{})}
	if len(chunks) == 0 && readErr == nil {
		close(s.served)
	}
	return s
}

func TestRecorderStopConcatenates(t *testing.T) {
	cases := []struct {
		name   string
		chunks [][]byte
	}{
		{name: "two chunks 4000 bytes", chunks: [][]byte{make([]byte, 1500), make([]byte, 2500)}},
		{name: "many small chunks", chunks: [][]byte{{1}, {2, 3}, {4, 5, 6}}},
		{name: "nothing captured", chunks: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stream := newFakeStream(nil, tc.chunks...)
			rec := NewRecorder(testLogger, &fakeDevice{streams: []*fakeStream{stream}}, 16000)
			if err := rec.Start(); err != nil {
				t.Fatalf("Start() failed: %v", err)
			}
			<-stream.served
			buf, err := rec.Stop()
			if err != nil {
				t.Fatalf("Stop() failed: %v", err)
			}
			want := 0
			var wantBytes []byte
			for _, c := range tc.chunks {
				want += len(c)
				wantBytes = append(wantBytes, c...)
			}
			if buf.Len() != want {
				t.Errorf("expected %d bytes, got %d", want, buf.Len())
			}
			if string(buf.Bytes()) != string(wantBytes) {
				t.Errorf("chunks not concatenated in order")
			}
			if !buf.IsPCM() {
				t.Errorf("expected pcm mime, got %q", buf.MIME())
			}
			if !stream.isClosed() {
				t.Errorf("device was not released")
			}
			if _, err := rec.Stop(); !errors.Is(err, models.ErrNotRecording) {
				t.Errorf("still recording after stop: %v", err)
			}
		})
	}
}

func TestRecorderDoubleStart(t *testing.T) {
	stream := newFakeStream(nil, []byte{1, 2})
	dev := &fakeDevice{streams: []*fakeStream{stream}}
	rec := NewRecorder(testLogger, dev, 16000)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := rec.Start(); !errors.Is(err, models.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if dev.opened != 1 {
		t.Errorf("expected one open device, got %d", dev.opened)
	}
	<-stream.served
	buf, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if buf.Len() != 2 {
		t.Errorf("second start disturbed the session: %d bytes", buf.Len())
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	rec := NewRecorder(testLogger, &fakeDevice{}, 16000)
	if _, err := rec.Stop(); !errors.Is(err, models.ErrNotRecording) {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}
}

func TestRecorderDeviceUnavailable(t *testing.T) {
	rec := NewRecorder(testLogger, &fakeDevice{openErr: errors.New("permission denied")}, 16000)
	err := rec.Start()
	if !errors.Is(err, models.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if _, err := rec.Stop(); !errors.Is(err, models.ErrNotRecording) {
		t.Errorf("session must not exist after failed start: %v", err)
	}
}

func TestRecorderReadFailureReleasesDevice(t *testing.T) {
	stream := newFakeStream(errors.New("device unplugged"), []byte{1, 2, 3})
	second := newFakeStream(nil)
	rec := NewRecorder(testLogger, &fakeDevice{streams: []*fakeStream{stream, second}}, 16000)
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	<-stream.served
	buf, err := rec.Stop()
	if !errors.Is(err, models.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if buf.Len() != 3 {
		t.Errorf("expected captured bytes to survive, got %d", buf.Len())
	}
	if !stream.isClosed() {
		t.Errorf("device was not released after failure")
	}
	// device free again
	if err := rec.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatalf("Stop() after restart failed: %v", err)
	}
}
