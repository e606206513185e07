package clients

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"voxchat/audio"
	"voxchat/models"

	"github.com/sashabaranov/go-openai"
)

// whisper control tokens such as [_BEG_] or [_TT_42]
var specialRE = regexp.MustCompile(`\[_[A-Z0-9_]+\]`)

func stripSpecialTokens(text string) string {
	text = specialRE.ReplaceAllString(text, "")
	return strings.TrimSpace(strings.ReplaceAll(text, "\n ", "\n"))
}

type Transcriber struct {
	logger *slog.Logger
	client *openai.Client
	Model  string
}

func NewTranscriber(logger *slog.Logger, opts Options, model string) *Transcriber {
	if model == "" {
		model = models.DefaultSTTModel
	}
	return &Transcriber{
		logger: logger,
		client: newOpenAIClient(opts),
		Model:  model,
	}
}

// Transcribe uploads the buffer and returns the recognized text. Raw pcm
// capture is wrapped into wav first. No retries.
func (t *Transcriber) Transcribe(ctx context.Context, buf models.AudioBuffer, language string) (string, error) {
	if buf.Empty() {
		return "", &models.StageError{Kind: models.ErrTranscriptionFailed, Err: models.ErrEmptyAudio}
	}
	upload, err := audio.EncodeWAV(buf)
	if err != nil {
		return "", stageError(models.ErrTranscriptionFailed, err)
	}
	req := openai.AudioRequest{
		Model:    t.Model,
		FilePath: "audio_input" + upload.Ext(),
		Reader:   bytes.NewReader(upload.Bytes()),
		Language: language,
	}
	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		t.logger.Error("fn: Transcribe", "error", err, "bytes", upload.Len())
		return "", stageError(models.ErrTranscriptionFailed, err)
	}
	text := stripSpecialTokens(resp.Text)
	t.logger.Debug("transcription", "text", text, "language", language)
	return text, nil
}
