// Package platform provides the file, clipboard and share shims a session
// needs on a desktop or server host.
package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/session"
)

// MaxFileSize bounds how much a picker will read.
const MaxFileSize = 50 << 20

// PathPicker picks a file from the local filesystem.
type PathPicker struct {
	Path string
}

// Pick reads the file at Path. An empty path counts as a canceled pick.
func (p PathPicker) Pick(_ context.Context) (*session.File, error) {
	path := strings.TrimSpace(p.Path)
	if path == "" {
		return nil, session.ErrPickCanceled
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return nil, errors.Errorf("%s is too large: %d MB (max %d MB)", path, info.Size()>>20, MaxFileSize>>20)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return &session.File{
		Name:      filepath.Base(path),
		MediaType: DetectMediaType(filepath.Base(path), data),
		Data:      data,
	}, nil
}

// UploadPicker wraps a file that arrived as a stream, such as stdin or an
// upload form.
type UploadPicker struct {
	Name      string
	MediaType string
	Reader    io.Reader
}

// Pick drains Reader. A nil reader counts as a canceled pick.
func (p UploadPicker) Pick(_ context.Context) (*session.File, error) {
	if p.Reader == nil {
		return nil, session.ErrPickCanceled
	}
	data, err := io.ReadAll(io.LimitReader(p.Reader, MaxFileSize+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", p.Name)
	}
	if len(data) > MaxFileSize {
		return nil, errors.Errorf("%s is too large (max %d MB)", p.Name, MaxFileSize>>20)
	}
	mediaType := p.MediaType
	if mediaType == "" {
		mediaType = DetectMediaType(p.Name, data)
	}
	return &session.File{Name: p.Name, MediaType: mediaType, Data: data}, nil
}

// DetectMediaType sniffs data. Office documents are zip containers, so the
// extension decides when sniffing only finds a generic archive.
func DetectMediaType(name string, data []byte) string {
	mt := mimetype.Detect(data)
	if mt.Is("application/zip") || mt.Is("application/octet-stream") {
		if byExt := mimetype.Lookup(extensionMediaType(name)); byExt != nil {
			return byExt.String()
		}
	}
	return mt.String()
}

func extensionMediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".pdf":
		return "application/pdf"
	case ".txt", ".md":
		return "text/plain"
	}
	return ""
}

// SystemClipboard writes to the host clipboard.
type SystemClipboard struct{}

// WriteText implements session.Clipboard.
func (SystemClipboard) WriteText(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard is not supported on this system")
	}
	return clipboard.WriteAll(text)
}

// FileDownload saves exports into a directory. Existing files are never
// overwritten; a numbered suffix is added instead.
type FileDownload struct {
	Dir string
}

// Export implements session.Exporter.
func (d FileDownload) Export(_ context.Context, name string, content []byte) (string, error) {
	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create export directory %s", dir)
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "failed to create %s", path)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			os.Remove(path)
			return "", errors.Wrapf(err, "failed to write %s", path)
		}
		if err := f.Close(); err != nil {
			return "", errors.Wrapf(err, "failed to close %s", path)
		}
		return path, nil
	}
}

// WriterShare hands exports to a writer, such as stdout piped into another
// program.
type WriterShare struct {
	W io.Writer
}

// Export implements session.Exporter.
func (s WriterShare) Export(_ context.Context, name string, content []byte) (string, error) {
	if _, err := s.W.Write(content); err != nil {
		return "", errors.Wrapf(err, "failed to share %s", name)
	}
	return name, nil
}
