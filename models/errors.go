package models

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceUnavailable   = errors.New("audio device unavailable")
	ErrAlreadyRecording    = errors.New("already recording")
	ErrNotRecording        = errors.New("not recording")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrCompletionFailed    = errors.New("completion failed")
	ErrSynthesisFailed     = errors.New("synthesis failed")
	ErrPlaybackFailed      = errors.New("playback failed")
	ErrBusy                = errors.New("pipeline busy")
	ErrEmptyAudio          = errors.New("empty audio")
	ErrNothingToReplay     = errors.New("no recording to replay")
)

// StageError keeps the upstream status and message of a failed remote call.
type StageError struct {
	Kind       error
	StatusCode int
	Message    string
	Err        error
}

func (e *StageError) Error() string {
	msg := e.Kind.Error()
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	} else if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *StageError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
