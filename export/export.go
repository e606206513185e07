// Package export renders the conversation log as text and ships it to disk
// or to an S3 compatible bucket.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxchat/models"
)

// Text renders one "{role}: {content}" line per entry.
func Text(entries []models.Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.ToExport())
	}
	return strings.Join(lines, "\n")
}

func FileName(t time.Time) string {
	return fmt.Sprintf("conversation-%s.txt", t.Format("2006-01-02-15-04-05"))
}

// WriteFile writes the log into dir and returns the file path.
func WriteFile(dir string, entries []models.Entry) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName(time.Now()))
	if err := os.WriteFile(path, []byte(Text(entries)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}
