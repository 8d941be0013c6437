package extract

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

var (
	disableConfigOnce sync.Once
	pageFileRe        = regexp.MustCompile(`_page_(\d+)`)
)

// extractPDF dumps every page content stream with pdfcpu and scans the
// text-showing operators out of them, decoding strings through each page's
// fonts. Pages are separated by a blank line.
func extractPDF(ctx context.Context, data []byte, tempDir string, logger *slog.Logger) (string, error) {
	// pdfcpu would otherwise create a config directory in the user's home.
	disableConfigOnce.Do(api.DisableConfigDir)

	outDir, err := os.MkdirTemp(tempDir, "textsummarizer-pdf-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create scratch directory")
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContent(bytes.NewReader(data), outDir, "doc", nil, conf); err != nil {
		return "", errors.Wrap(err, "failed to read pdf content")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fonts, err := openFontTable(data)
	if err != nil {
		logger.Debug("extract: pdf fonts unavailable, reading strings as Latin-1", "error", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", errors.Wrap(err, "failed to list extracted pages")
	}

	type page struct {
		num  int
		text string
	}
	var pages []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := pageFileRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		content, err := os.ReadFile(filepath.Join(outDir, entry.Name()))
		if err != nil {
			return "", errors.Wrapf(err, "failed to read page %d", num)
		}
		pages = append(pages, page{num: num, text: ScanContent(content, fonts.decoder(num))})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
