package models

import (
	"fmt"
	"mime"
	"strconv"
	"time"
)

const (
	MimeWAV  = "audio/wav"
	MimeMP3  = "audio/mpeg"
	MimePCM  = "audio/l16"
	MimeWebM = "audio/webm"
	MimeOGG  = "audio/ogg"
	MimeMP4  = "audio/mp4"
	MimeFLAC = "audio/flac"
)

// AudioBuffer is an immutable audio payload with its format tag.
type AudioBuffer struct {
	data []byte
	mime string
}

// NewAudioBuffer copies data so later writes by the caller cannot leak in.
func NewAudioBuffer(data []byte, mimeType string) AudioBuffer {
	cp := make([]byte, len(data))
	copy(cp, data)
	return AudioBuffer{data: cp, mime: mimeType}
}

// PCMMime is the tag for raw 16-bit little-endian mono capture.
func PCMMime(sampleRate int) string {
	return mime.FormatMediaType(MimePCM, map[string]string{
		"rate":     strconv.Itoa(sampleRate),
		"channels": "1",
	})
}

// Bytes returns a copy of the payload.
func (a AudioBuffer) Bytes() []byte {
	cp := make([]byte, len(a.data))
	copy(cp, a.data)
	return cp
}

func (a AudioBuffer) Len() int { return len(a.data) }

func (a AudioBuffer) Empty() bool { return len(a.data) == 0 }

func (a AudioBuffer) MIME() string { return a.mime }

// MediaType is the MIME tag without parameters.
func (a AudioBuffer) MediaType() string {
	mt, _, err := mime.ParseMediaType(a.mime)
	if err != nil {
		return a.mime
	}
	return mt
}

// IsPCM reports raw samples that need a container before upload.
func (a AudioBuffer) IsPCM() bool {
	return a.MediaType() == MimePCM
}

// SampleRate reads the rate parameter of a PCM tag.
func (a AudioBuffer) SampleRate() (int, error) {
	_, params, err := mime.ParseMediaType(a.mime)
	if err != nil {
		return 0, fmt.Errorf("failed to parse mime %q: %w", a.mime, err)
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return 0, fmt.Errorf("no sample rate in mime %q", a.mime)
	}
	return rate, nil
}

// Ext is the file extension the remote side expects for this format.
func (a AudioBuffer) Ext() string {
	switch a.MediaType() {
	case MimeWAV, "audio/x-wav", "audio/wave", MimePCM:
		return ".wav"
	case MimeMP3:
		return ".mp3"
	case MimeWebM:
		return ".webm"
	case MimeOGG:
		return ".ogg"
	case MimeMP4, "audio/x-m4a":
		return ".m4a"
	case MimeFLAC:
		return ".flac"
	}
	return ".wav"
}

// RecordingSession accumulates microphone fragments between start and stop.
type RecordingSession struct {
	ID        string
	Chunks    [][]byte
	StartedAt time.Time
}

func (s *RecordingSession) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	s.Chunks = append(s.Chunks, cp)
}

// Size is the sum of chunk lengths.
func (s *RecordingSession) Size() int {
	n := 0
	for _, c := range s.Chunks {
		n += len(c)
	}
	return n
}

// Finalize concatenates the chunks in arrival order.
func (s *RecordingSession) Finalize(mimeType string) AudioBuffer {
	data := make([]byte, 0, s.Size())
	for _, c := range s.Chunks {
		data = append(data, c...)
	}
	return AudioBuffer{data: data, mime: mimeType}
}
