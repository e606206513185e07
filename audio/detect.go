package audio

import (
	"net/http"
	"path/filepath"
	"strings"

	"voxchat/models"
)

var extMIME = map[string]string{
	".wav":  models.MimeWAV,
	".mp3":  models.MimeMP3,
	".webm": models.MimeWebM,
	".ogg":  models.MimeOGG,
	".oga":  models.MimeOGG,
	".m4a":  models.MimeMP4,
	".mp4":  models.MimeMP4,
	".flac": models.MimeFLAC,
}

// DetectMIME picks the audio format from the file name, falling back to
// sniffing the content.
func DetectMIME(name string, data []byte) string {
	if mt, ok := extMIME[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, "audio/wave"):
		return models.MimeWAV
	case strings.HasPrefix(sniffed, "audio/mpeg"):
		return models.MimeMP3
	case strings.HasPrefix(sniffed, "application/ogg"), strings.HasPrefix(sniffed, "audio/ogg"):
		return models.MimeOGG
	case strings.HasPrefix(sniffed, "video/webm"):
		return models.MimeWebM
	case strings.HasPrefix(sniffed, "audio/"):
		return sniffed
	}
	// whisper accepts wav headers best, raw bytes are assumed to be wav
	return models.MimeWAV
}
