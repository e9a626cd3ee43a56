package wiring

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// ArchiveName is the filename served to the browser.
const ArchiveName = "openclaw-wiring-pack.zip"

// Zip assembles the wiring pack into a ZIP archive with every document
// under an openclaw-wiring-pack/ folder.
func Zip() ([]byte, error) {
	files, err := Generate()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, file := range files {
		entry, err := w.Create("openclaw-wiring-pack/" + file.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to wiring pack: %w", file.Filename, err)
		}
		if _, err := entry.Write([]byte(file.Content)); err != nil {
			return nil, fmt.Errorf("failed to write %s to wiring pack: %w", file.Filename, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize wiring pack: %w", err)
	}
	return buf.Bytes(), nil
}
