package models

import (
	"errors"
	"strings"
	"testing"
)

func TestRecordingSessionFinalize(t *testing.T) {
	cases := []struct {
		name   string
		chunks [][]byte
		want   string
	}{
		{name: "two chunks", chunks: [][]byte{[]byte("ab"), []byte("cde")}, want: "abcde"},
		{name: "empty chunks skipped", chunks: [][]byte{{}, []byte("x"), nil}, want: "x"},
		{name: "nothing captured", chunks: nil, want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &RecordingSession{}
			for _, c := range tc.chunks {
				s.Append(c)
			}
			buf := s.Finalize(PCMMime(16000))
			if string(buf.Bytes()) != tc.want {
				t.Errorf("expected %q, got %q", tc.want, buf.Bytes())
			}
			if buf.Len() != s.Size() {
				t.Errorf("buffer len %d != session size %d", buf.Len(), s.Size())
			}
			if buf.Empty() != (tc.want == "") {
				t.Errorf("unexpected Empty() = %v", buf.Empty())
			}
		})
	}
}

func TestAudioBufferImmutable(t *testing.T) {
	src := []byte{1, 2, 3}
	buf := NewAudioBuffer(src, MimeWAV)
	src[0] = 9
	out := buf.Bytes()
	out[1] = 9
	if got := buf.Bytes(); got[0] != 1 || got[1] != 2 {
		t.Errorf("buffer was mutated: %v", got)
	}
}

func TestAudioBufferFormat(t *testing.T) {
	pcm := NewAudioBuffer([]byte{0, 0}, PCMMime(22050))
	if !pcm.IsPCM() {
		t.Fatalf("expected pcm, mime %q", pcm.MIME())
	}
	rate, err := pcm.SampleRate()
	if err != nil {
		t.Fatalf("failed to read rate: %v", err)
	}
	if rate != 22050 {
		t.Errorf("expected rate 22050, got %d", rate)
	}
	cases := []struct {
		mime string
		ext  string
	}{
		{MimeWAV, ".wav"},
		{MimeMP3, ".mp3"},
		{"audio/webm;codecs=opus", ".webm"},
		{PCMMime(16000), ".wav"},
		{"application/octet-stream", ".wav"},
	}
	for _, tc := range cases {
		if got := NewAudioBuffer(nil, tc.mime).Ext(); got != tc.ext {
			t.Errorf("Ext(%q) = %q; expected %q", tc.mime, got, tc.ext)
		}
	}
	if _, err := NewAudioBuffer(nil, MimeWAV).SampleRate(); err == nil {
		t.Errorf("expected error for wav without rate")
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&StageError{Kind: ErrTranscriptionFailed, StatusCode: 401, Message: "bad key", Err: cause})
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("expected errors.Is to match kind")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to match cause")
	}
	if errors.Is(err, ErrCompletionFailed) {
		t.Errorf("unexpected match with another kind")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("status and message missing from %q", err.Error())
	}
	var se *StageError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Errorf("errors.As failed: %v", se)
	}
}

func TestEntryText(t *testing.T) {
	e := Entry{Role: RoleUser, Content: "hola"}
	if got := e.ToExport(); got != "user: hola" {
		t.Errorf("unexpected export line %q", got)
	}
	if got := e.ToText(0, "<you>: ", "<bot>: "); !strings.Contains(got, "(0) <you>: ") || !strings.Contains(got, "hola") {
		t.Errorf("unexpected text %q", got)
	}
}

func TestStateFlags(t *testing.T) {
	for _, s := range []State{StateTranscribing, StateGenerating, StateSynthesizing} {
		if !s.Loading() {
			t.Errorf("%s should be loading", s)
		}
		if s.AcceptsInput() {
			t.Errorf("%s should not accept input", s)
		}
	}
	if !StateIdle.AcceptsInput() || !StatePlayingBack.AcceptsInput() {
		t.Errorf("idle and playback should accept input")
	}
	if StateRecording.AcceptsInput() || StateFailed.Loading() {
		t.Errorf("unexpected flags for recording/failed")
	}
}
