// Package writer delivers pagectl reports: layouts, pool statistics,
// translations and exercise results rendered as indented JSON.
package writer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReportWriter is a destination for one report value.
type ReportWriter interface {
	WriteReport(v any) error
}

// Encode renders a report as two-space indented JSON ending in a newline.
func Encode(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// StreamWriter writes reports to an io.Writer, typically stdout.
type StreamWriter struct {
	W io.Writer
}

// WriteReport encodes v and writes it to the stream.
func (w *StreamWriter) WriteReport(v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	_, err = w.W.Write(data)
	return err
}

// FileWriter replaces a report file atomically, so a reader polling the
// path never sees a half-written report.
type FileWriter struct {
	Path string
}

// WriteReport encodes v and writes it to the configured path via temp
// file + rename.
func (w *FileWriter) WriteReport(v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}

	// Temp file in the same directory so the rename stays on one filesystem
	tmpFile, err := os.CreateTemp(filepath.Dir(w.Path), ".pagectl-report-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpPath := tmpFile.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("sync temp report: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmpPath, w.Path); err != nil {
		return fmt.Errorf("publish report %s: %w", w.Path, err)
	}
	committed = true
	return nil
}
