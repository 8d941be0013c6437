package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrExtractionFailed wraps any failure reported by the Extractor.
	ErrExtractionFailed = errors.New("failed to extract text from file")
	// ErrSummarizeFailed marks a record whose last request failed.
	ErrSummarizeFailed = errors.New(FailureMessage)
	// ErrNoFile is returned when ExtractText receives no file.
	ErrNoFile = errors.New("no file chosen")
	// ErrInvalidText is returned for plain-text files that are not valid UTF-8.
	ErrInvalidText = errors.New("file is not valid UTF-8 text")
	// ErrPickCanceled is returned by a FilePicker when the user chose nothing.
	ErrPickCanceled = errors.New("file selection canceled")
	// ErrNotFound is returned by record accessors for unknown ids.
	ErrNotFound = errors.New("record not found")
	// ErrNotReady is returned when the summary of a record is not available yet.
	ErrNotReady = errors.New("summary not available")
)

// Summarizer is the remote summarization service.
//
// The returned value is the raw result field of the response: a string, a
// list, or any structured value. A nil value means the field was absent.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (any, error)
}

// File is a picked document: raw bytes plus its declared name and media type.
type File struct {
	Name      string
	MediaType string
	Data      []byte
}

// Extractor converts a non-plain-text file into plain text.
type Extractor interface {
	Extract(ctx context.Context, file *File) (string, error)
}

// FilePicker lets the user choose a file.
type FilePicker interface {
	Pick(ctx context.Context) (*File, error)
}

// Clipboard receives copied text.
type Clipboard interface {
	WriteText(text string) error
}

// Exporter saves or shares a named document and reports where it went.
type Exporter interface {
	Export(ctx context.Context, name string, content []byte) (string, error)
}

// Metrics observes store activity.
type Metrics interface {
	ObserveSummarize(status Status, elapsed time.Duration)
	SetRecords(n int)
}

// IsPlainText reports whether a declared media type can be decoded locally.
func IsPlainText(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "text/plain")
}

type nopMetrics struct{}

func (nopMetrics) ObserveSummarize(Status, time.Duration) {}
func (nopMetrics) SetRecords(int)                         {}
