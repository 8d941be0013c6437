// Package extract converts uploaded documents into plain text.
//
// The format is chosen by file extension, falling back to the declared
// media type: PDF via pdfcpu content streams decoded through each font's
// encoding and ToUnicode CMap, DOCX via the document XML,
// and plain text decoded as UTF-8 (or UTF-16/Windows-1252 when marked or
// invalid).
package extract

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/session"
)

var (
	// ErrUnsupportedType is returned for files whose format has no extractor.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyFile is returned for zero-length uploads.
	ErrEmptyFile = errors.New("file is empty")
)

// Supported formats.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
	FormatTXT  = "txt"
)

// Recorder observes extraction attempts.
type Recorder interface {
	RecordExtract(format string, latency time.Duration, success bool)
}

// Service dispatches files to the extractor for their format.
type Service struct {
	recorder Recorder
	logger   *slog.Logger
	tempDir  string
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTempDir sets where PDF scratch files are written. Defaults to the
// system temp directory.
func WithTempDir(dir string) Option {
	return func(s *Service) { s.tempDir = dir }
}

// NewService creates an extraction service.
func NewService(opts ...Option) *Service {
	s := &Service{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FormatOf returns the format of a file from its name, or from its media
// type when the name has no known extension.
func FormatOf(name, mediaType string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return FormatPDF, true
	case "docx":
		return FormatDOCX, true
	case "txt", "text", "md":
		return FormatTXT, true
	}

	mt := strings.ToLower(mediaType)
	switch {
	case strings.HasPrefix(mt, "application/pdf"):
		return FormatPDF, true
	case strings.HasPrefix(mt, "application/vnd.openxmlformats-officedocument.wordprocessingml.document"):
		return FormatDOCX, true
	case strings.HasPrefix(mt, "text/plain"):
		return FormatTXT, true
	}
	return "", false
}

// Extract implements session.Extractor.
func (s *Service) Extract(ctx context.Context, file *session.File) (string, error) {
	if file == nil {
		return "", session.ErrNoFile
	}
	format, ok := FormatOf(file.Name, file.MediaType)
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedType, "%s (%s)", file.Name, file.MediaType)
	}
	if len(file.Data) == 0 {
		return "", errors.Wrap(ErrEmptyFile, file.Name)
	}

	start := time.Now()
	var (
		text string
		err  error
	)
	switch format {
	case FormatPDF:
		text, err = extractPDF(ctx, file.Data, s.tempDir, s.logger)
	case FormatDOCX:
		text, err = extractDOCX(file.Data)
	case FormatTXT:
		text, err = decodeText(file.Data)
	}
	elapsed := time.Since(start)

	if s.recorder != nil {
		s.recorder.RecordExtract(format, elapsed, err == nil)
	}
	if err != nil {
		s.logger.Warn("extract: failed", "file", file.Name, "format", format, "error", err)
		return "", errors.Wrapf(err, "failed to extract %s", file.Name)
	}

	s.logger.Debug("extract: done",
		"file", file.Name,
		"format", format,
		"size", len(file.Data),
		"text_length", len(text),
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, nil
}
