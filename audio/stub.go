//go:build !extra

package audio

import (
	"errors"
	"log/slog"

	"voxchat/models"
)

// built without the extra tag: no portaudio, no speaker

var errNoAudio = errors.New("audio support not compiled in (build with -tags extra)")

type stubDevice struct {
	logger *slog.Logger
}

func NewDefaultDevice(logger *slog.Logger) Device {
	return &stubDevice{logger: logger}
}

func (d *stubDevice) Open(sampleRate int) (Stream, error) {
	d.logger.Debug("microphone not available - extra modules disabled")
	return nil, errNoAudio
}

type stubPlayer struct {
	logger *slog.Logger
}

func NewDefaultPlayer(logger *slog.Logger) Player {
	return &stubPlayer{logger: logger}
}

func (p *stubPlayer) Play(buf models.AudioBuffer) (<-chan struct{}, error) {
	p.logger.Debug("playback not available - extra modules disabled")
	return nil, errNoAudio
}

func (p *stubPlayer) Stop() {}
