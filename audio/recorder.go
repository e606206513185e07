package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"voxchat/models"

	"github.com/google/uuid"
)

// Stream is an opened input device. Read blocks until the next fragment is
// available; Close stops capture and releases the device.
type Stream interface {
	Read() ([]byte, error)
	Close() error
}

// Device opens the microphone.
type Device interface {
	Open(sampleRate int) (Stream, error)
}

// Recorder turns a Device into start/stop recording sessions.
type Recorder struct {
	logger     *slog.Logger
	device     Device
	SampleRate int

	mu         sync.Mutex
	session    *models.RecordingSession
	stopping   bool
	stopCh     chan struct{}
	done       chan struct{}
	captureErr error
}

func NewRecorder(logger *slog.Logger, device Device, sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = models.DefaultSampleRate
	}
	return &Recorder{
		logger:     logger,
		device:     device,
		SampleRate: sampleRate,
	}
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		return models.ErrAlreadyRecording
	}
	stream, err := r.device.Open(r.SampleRate)
	if err != nil {
		r.logger.Error("failed to open microphone", "error", err)
		return fmt.Errorf("%w: %w", models.ErrDeviceUnavailable, err)
	}
	r.session = &models.RecordingSession{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
	}
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	r.captureErr = nil
	go r.capture(r.session, stream, r.stopCh, r.done)
	r.logger.Debug("recording started", "session", r.session.ID, "sample_rate", r.SampleRate)
	return nil
}

// Stop finalizes the active session into one buffer. A capture failure is
// reported as ErrDeviceUnavailable alongside whatever was captured.
func (r *Recorder) Stop() (models.AudioBuffer, error) {
	r.mu.Lock()
	if r.session == nil || r.stopping {
		r.mu.Unlock()
		return models.AudioBuffer{}, models.ErrNotRecording
	}
	r.stopping = true
	stopCh, done := r.stopCh, r.done
	r.mu.Unlock()

	close(stopCh)
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.session
	buf := session.Finalize(models.PCMMime(r.SampleRate))
	captureErr := r.captureErr
	r.session = nil
	r.stopping = false
	r.captureErr = nil
	r.logger.Debug("recording stopped", "session", session.ID,
		"chunks", len(session.Chunks), "bytes", buf.Len(), "took", time.Since(session.StartedAt))
	if captureErr != nil {
		return buf, fmt.Errorf("%w: %w", models.ErrDeviceUnavailable, captureErr)
	}
	return buf, nil
}

// capture owns the stream; the device is released on every exit path.
func (r *Recorder) capture(session *models.RecordingSession, stream Stream, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if err := stream.Close(); err != nil {
			r.logger.Error("failed to release microphone", "error", err)
		}
	}()
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		chunk, err := stream.Read()
		if err != nil {
			r.logger.Error("reading stream", "error", err)
			r.mu.Lock()
			r.captureErr = err
			r.mu.Unlock()
			return
		}
		r.mu.Lock()
		session.Append(chunk)
		r.mu.Unlock()
	}
}
