package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileWriter stores reports under a local directory when no bucket is set.
type FileWriter struct {
	Dir string
}

func (w FileWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	full := filepath.Join(w.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("report: create dir: %w", err)
	}

	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", full, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("report: write %s: %w", full, err)
	}
	return f.Close()
}
