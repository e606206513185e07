//go:build !extra

package clients

import (
	"errors"
	"log/slog"
)

func newGoogleSynthesizer(logger *slog.Logger, so SynthOptions) (Synthesizer, error) {
	return nil, errors.New("google tts not compiled in (build with -tags extra)")
}
