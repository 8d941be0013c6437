// Package export renders summary records into shareable documents.
package export

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/hrygo/textsummarizer/session"
)

const (
	FormatTXT  = "txt"
	FormatMD   = "md"
	FormatHTML = "html"
	FormatAtom = "atom"
)

// ErrUnknownFormat is returned for formats other than txt, md, html and atom.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists the supported single-record formats.
func Formats() []string {
	return []string{FormatTXT, FormatMD, FormatHTML}
}

// Document is the exportable text of one record.
type Document struct {
	Title string
	Field session.Field
	Text  string
}

// NewDocument selects the original or summary text of rec. Summaries can
// only be exported once the record is Done; see session.SummaryOf.
func NewDocument(rec session.Record, field session.Field) (Document, error) {
	doc := Document{Title: rec.Title, Field: field}
	switch field {
	case session.FieldOriginal:
		doc.Text = rec.OriginalText
	case session.FieldSummary:
		text, err := session.SummaryOf(rec)
		if err != nil {
			return Document{}, err
		}
		doc.Text = text
	default:
		return Document{}, errors.Errorf("unknown field %q", field)
	}
	return doc, nil
}

func (d Document) heading() string {
	if d.Field == session.FieldSummary {
		return "Summary"
	}
	return "Original text"
}

// Render formats the document as txt, md or html.
func Render(format string, doc Document) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatTXT:
		return []byte(doc.Title + "\n\n" + doc.Text + "\n"), nil
	case FormatMD:
		return []byte(markdown(doc)), nil
	case FormatHTML:
		return renderHTML(doc)
	}
	return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
}

func markdown(doc Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n## %s\n\n", doc.Title, doc.heading())
	sb.WriteString(strings.TrimSpace(doc.Text))
	sb.WriteString("\n")
	return sb.String()
}

func renderHTML(doc Document) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown(doc)), &body); err != nil {
		return nil, errors.Wrap(err, "failed to render markdown")
	}

	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", html.EscapeString(doc.Title))
	out.WriteString("</head>\n<body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// Feed renders the Done records as an Atom feed, newest first.
func Feed(records []session.Record, updated time.Time) ([]byte, error) {
	feed := &feeds.Feed{
		Title:       "Text summaries",
		Link:        &feeds.Link{Href: "urn:textsummarizer:session"},
		Description: "Summaries produced in this session",
		Created:     updated,
		Updated:     updated,
	}

	done := make([]session.Record, 0, len(records))
	for _, rec := range records {
		if rec.Status == session.StatusDone {
			done = append(done, rec)
		}
	}
	slices.SortStableFunc(done, func(a, b session.Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	for _, rec := range done {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          "urn:textsummarizer:record:" + rec.ID,
			Title:       rec.Title,
			Link:        &feeds.Link{Href: "urn:textsummarizer:record:" + rec.ID},
			Description: rec.SummaryText,
			Created:     rec.CreatedAt,
			Updated:     rec.UpdatedAt,
		})
	}

	atom, err := feed.ToAtom()
	if err != nil {
		return nil, errors.Wrap(err, "failed to render atom feed")
	}
	return []byte(atom), nil
}

// FileName derives a file name from a record title.
func FileName(title, ext string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case strings.ContainsRune(`/\:*?"<>|`, r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	name := strings.Trim(sb.String(), " .")
	if name == "" {
		name = "summary"
	}
	if ext == "" {
		return name
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}

// Record renders one record in format and hands it to the exporter.
// It returns the location reported by the exporter.
func Record(ctx context.Context, exp session.Exporter, rec session.Record, field session.Field, format string) (string, error) {
	doc, err := NewDocument(rec, field)
	if err != nil {
		return "", err
	}
	content, err := Render(format, doc)
	if err != nil {
		return "", err
	}
	name := FileName(fmt.Sprintf("%s %s", doc.Title, field), strings.ToLower(format))
	return exp.Export(ctx, name, content)
}

// Session exports all Done records as one Atom feed.
func Session(ctx context.Context, exp session.Exporter, records []session.Record, now time.Time) (string, error) {
	content, err := Feed(records, now)
	if err != nil {
		return "", err
	}
	return exp.Export(ctx, "summaries.atom", content)
}
