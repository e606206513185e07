package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"voxchat/models"

	"github.com/sashabaranov/go-openai"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (models.AudioBuffer, error)
}

type SynthOptions struct {
	Provider string // openai, google
	Model    string
	Speed    float32
	Language string
}

func NewSynthesizer(logger *slog.Logger, opts Options, so SynthOptions) (Synthesizer, error) {
	switch strings.ToLower(so.Provider) {
	case "google", "google-translate", "google_translate":
		logger.Debug("tts init, chosen google translate")
		return newGoogleSynthesizer(logger, so)
	case "", "openai":
		logger.Debug("tts init, chosen openai")
		return NewSpeech(logger, opts, so.Model, so.Speed), nil
	}
	return nil, fmt.Errorf("unknown tts provider %q", so.Provider)
}

// Speech asks the remote endpoint for binary wav audio.
type Speech struct {
	logger *slog.Logger
	client *openai.Client
	Model  string
	Speed  float32
}

func NewSpeech(logger *slog.Logger, opts Options, model string, speed float32) *Speech {
	if model == "" {
		model = models.DefaultTTSModel
	}
	return &Speech{
		logger: logger,
		client: newOpenAIClient(opts),
		Model:  model,
		Speed:  speed,
	}
}

func (s *Speech) Synthesize(ctx context.Context, text, voice string) (models.AudioBuffer, error) {
	input := prepareSpeechInput(text, models.MaxSpeechInput)
	if input == "" {
		return models.AudioBuffer{}, &models.StageError{Kind: models.ErrSynthesisFailed, Message: "nothing to say"}
	}
	if voice == "" {
		voice = models.DefaultVoice
	}
	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.Model),
		Input:          input,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatWav,
	}
	if s.Speed > 0 && s.Speed != 1.0 {
		req.Speed = float64(s.Speed)
	}
	s.logger.Debug("fn: Synthesize is called", "text-len", len(input), "voice", voice)
	resp, err := s.client.CreateSpeech(ctx, req)
	if err != nil {
		s.logger.Error("speech request failed", "error", err)
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, err)
	}
	defer resp.Close()
	data, err := io.ReadAll(resp)
	if err != nil {
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, errors.New("empty audio response"))
	}
	return models.NewAudioBuffer(data, models.MimeWAV), nil
}
