package server

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/ai/cache"
	"github.com/hrygo/textsummarizer/ai/summary"
	"github.com/hrygo/textsummarizer/internal/version"
	"github.com/hrygo/textsummarizer/plugin/extract"
	"github.com/hrygo/textsummarizer/session"
)

// Client-facing failure messages. Raw errors are only logged.
const (
	msgExtractFailed   = "failed to extract text"
	msgSummarizeFailed = session.FailureMessage
)

type textResponse struct {
	Text string `json:"text"`
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	OriginalText string `json:"original_text"`
	Summary      string `json:"summary"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.GetCurrentVersion(s.Profile.Mode),
	})
}

// handleExtractText accepts a multipart "file" field. Missing files and
// unsupported formats yield empty text rather than an error.
func (s *Server) handleExtractText(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		return c.JSON(http.StatusOK, textResponse{})
	}

	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload").SetInternal(err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read upload").SetInternal(err)
	}

	file := &session.File{
		Name:      fh.Filename,
		MediaType: fh.Header.Get(echo.HeaderContentType),
		Data:      data,
	}
	if _, ok := extract.FormatOf(file.Name, ""); !ok {
		return c.JSON(http.StatusOK, textResponse{})
	}

	text, err := s.extractor.Extract(c.Request().Context(), file)
	switch {
	case errors.Is(err, extract.ErrUnsupportedType), errors.Is(err, extract.ErrEmptyFile):
		return c.JSON(http.StatusOK, textResponse{})
	case err != nil:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, msgExtractFailed).SetInternal(err)
	}
	return c.JSON(http.StatusOK, textResponse{Text: text})
}

func (s *Server) handleSummarize(c echo.Context) error {
	if s.limiter != nil && !s.limiter.Allow() {
		if s.metrics != nil {
			s.metrics.RecordSummarize("rate_limited", "", 0)
		}
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	}

	req := &summarizeRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}

	if s.cache != nil {
		if hit, ok := s.cache.Get(req.Text); ok {
			s.recordCache(true)
			return c.JSON(http.StatusOK, summarizeResponse{OriginalText: req.Text, Summary: hit.Text})
		}
		s.recordCache(false)
	}

	start := time.Now()
	resp, err := s.summarizer.Summarize(c.Request().Context(), &summary.SummarizeRequest{
		Content: req.Text,
		MaxLen:  s.Profile.SummaryMaxLen,
	})
	if err != nil {
		s.logger.Error("server: summarize failed", "length", len(req.Text), "error", err)
		if s.metrics != nil {
			s.metrics.RecordSummarize("error", "", time.Since(start))
		}
		return echo.NewHTTPError(http.StatusBadGateway, msgSummarizeFailed).SetInternal(err)
	}

	if s.metrics != nil {
		s.metrics.RecordSummarize("success", resp.Source, time.Since(start))
	}
	if s.cache != nil && resp.Source != summary.SourceEmpty {
		s.cache.Put(req.Text, cache.Summary{Text: resp.Summary, Source: resp.Source})
	}
	return c.JSON(http.StatusOK, summarizeResponse{OriginalText: req.Text, Summary: resp.Summary})
}

func (s *Server) recordCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()
	}
}
