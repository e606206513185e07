package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"voxchat/models"
)

const wavHeaderSize = 44

// EncodeWAV wraps raw PCM capture into a WAV container. Other formats are
// returned unchanged.
func EncodeWAV(buf models.AudioBuffer) (models.AudioBuffer, error) {
	if !buf.IsPCM() {
		return buf, nil
	}
	sampleRate, err := buf.SampleRate()
	if err != nil {
		return models.AudioBuffer{}, err
	}
	out := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+buf.Len()))
	if err := writeWavHeader(out, sampleRate, buf.Len()); err != nil {
		return models.AudioBuffer{}, err
	}
	out.Write(buf.Bytes())
	return models.NewAudioBuffer(out.Bytes(), models.MimeWAV), nil
}

// 16 bit mono pcm
func writeWavHeader(w io.Writer, sampleRate, dataSize int) error {
	header := make([]byte, wavHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate)*1*(16/8))
	binary.LittleEndian.PutUint16(header[32:34], 1*(16/8))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}
	return nil
}
