//go:build extra
// +build extra

package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/multierr"
)

const framesPerBuffer = 64

type portAudioDevice struct {
	logger *slog.Logger
}

func NewDefaultDevice(logger *slog.Logger) Device {
	return &portAudioDevice{logger: logger}
}

type portAudioStream struct {
	logger *slog.Logger
	stream *portaudio.Stream
	in     []int16
	buf    bytes.Buffer
}

func (d *portAudioDevice) Open(sampleRate int) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	in := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(in), in)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to open microphone: %w", err), portaudio.Terminate())
	}
	if err := stream.Start(); err != nil {
		return nil, multierr.Combine(fmt.Errorf("failed to start microphone: %w", err),
			stream.Close(), portaudio.Terminate())
	}
	return &portAudioStream{logger: d.logger, stream: stream, in: in}, nil
}

func (s *portAudioStream) Read() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		if err != portaudio.InputOverflowed {
			return nil, err
		}
		// dropped frames are not fatal
		s.logger.Warn("microphone input overflowed")
	}
	s.buf.Reset()
	if err := binary.Write(&s.buf, binary.LittleEndian, s.in); err != nil {
		return nil, fmt.Errorf("writing to buffer: %w", err)
	}
	return bytes.Clone(s.buf.Bytes()), nil
}

func (s *portAudioStream) Close() error {
	return multierr.Combine(s.stream.Stop(), s.stream.Close(), portaudio.Terminate())
}
