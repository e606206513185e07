//go:build extra
// +build extra

package clients

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"voxchat/models"

	google_translate_tts "github.com/GrailFinder/google-translate-tts"
	"github.com/GrailFinder/google-translate-tts/handlers"
)

// googleSynthesizer uses the Google Translate voice. It has a single voice
// per language, so the voice argument is ignored.
type googleSynthesizer struct {
	logger *slog.Logger
	speech *google_translate_tts.Speech
}

func newGoogleSynthesizer(logger *slog.Logger, so SynthOptions) (Synthesizer, error) {
	language := so.Language
	if language == "" {
		language = models.DefaultLanguage
	}
	speech := &google_translate_tts.Speech{
		Folder:   filepath.Join(os.TempDir(), "voxchat-tts"),
		Language: language,
		Proxy:    "",
		Speed:    so.Speed,
		Handler:  &handlers.Beep{},
	}
	return &googleSynthesizer{logger: logger, speech: speech}, nil
}

func (g *googleSynthesizer) Synthesize(ctx context.Context, text, voice string) (models.AudioBuffer, error) {
	input := prepareSpeechInput(text, models.MaxSpeechInput)
	if input == "" {
		return models.AudioBuffer{}, &models.StageError{Kind: models.ErrSynthesisFailed, Message: "nothing to say"}
	}
	g.logger.Debug("fn: Synthesize is called", "text-len", len(input), "language", g.speech.Language)
	reader, err := g.speech.GenerateSpeech(input)
	if err != nil {
		g.logger.Error("generate speech failed", "error", err)
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, err)
	}
	if len(data) == 0 {
		return models.AudioBuffer{}, stageError(models.ErrSynthesisFailed, fmt.Errorf("empty audio for %q", input))
	}
	return models.NewAudioBuffer(data, models.MimeMP3), nil
}
