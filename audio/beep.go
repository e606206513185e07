//go:build extra
// +build extra

package audio

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"voxchat/models"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

type playback struct {
	ctrl *beep.Ctrl
	done chan struct{}
	once sync.Once
}

func (p *playback) finish() {
	p.once.Do(func() { close(p.done) })
}

type beepPlayer struct {
	logger  *slog.Logger
	mu      sync.Mutex
	current *playback
}

func NewDefaultPlayer(logger *slog.Logger) Player {
	return &beepPlayer{logger: logger}
}

func decode(buf models.AudioBuffer) (beep.StreamSeekCloser, beep.Format, error) {
	switch buf.MediaType() {
	case models.MimeMP3:
		return mp3.Decode(io.NopCloser(bytes.NewReader(buf.Bytes())))
	case models.MimeWAV, "audio/x-wav", "audio/wave":
		return wav.Decode(bytes.NewReader(buf.Bytes()))
	case models.MimePCM:
		encoded, err := EncodeWAV(buf)
		if err != nil {
			return nil, beep.Format{}, err
		}
		return wav.Decode(bytes.NewReader(encoded.Bytes()))
	}
	return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", buf.MIME())
}

func (p *beepPlayer) Play(buf models.AudioBuffer) (<-chan struct{}, error) {
	p.logger.Debug("fn: Play is called", "bytes", buf.Len(), "mime", buf.MIME())
	streamer, format, err := decode(buf)
	if err != nil {
		p.logger.Error("decode failed", "error", err)
		return nil, fmt.Errorf("decode failed: %w", err)
	}
	// speaker can only be initialized once per sample rate; later calls just complain
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		p.logger.Debug("failed to init speaker", "error", err)
	}
	p.Stop()
	pb := &playback{done: make(chan struct{})}
	pb.ctrl = &beep.Ctrl{Streamer: beep.Seq(streamer, beep.Callback(func() {
		streamer.Close()
		p.mu.Lock()
		if p.current == pb {
			p.current = nil
		}
		p.mu.Unlock()
		pb.finish()
	})), Paused: false}
	p.mu.Lock()
	p.current = pb
	p.mu.Unlock()
	speaker.Play(pb.ctrl)
	return pb.done, nil
}

func (p *beepPlayer) Stop() {
	speaker.Lock()
	defer speaker.Unlock()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.logger.Debug("stopping playback")
	p.current.ctrl.Streamer = nil
	p.current.finish()
	p.current = nil
}
