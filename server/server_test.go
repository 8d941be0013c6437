package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/textsummarizer/ai/metrics"
	"github.com/hrygo/textsummarizer/ai/summary"
	"github.com/hrygo/textsummarizer/internal/profile"
	"github.com/hrygo/textsummarizer/plugin/client"
	"github.com/hrygo/textsummarizer/plugin/extract"
)

type fakeSummarizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, req *summary.SummarizeRequest) (*summary.SummarizeResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &summary.SummarizeResponse{Summary: "summary of " + req.Content, Source: summary.SourceLLM}, nil
}

func (f *fakeSummarizer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		Mode:          "dev",
		Addr:          "127.0.0.1",
		SummaryMaxLen: 200,
		CacheSize:     16,
		CacheTTL:      60,
		RateBurst:     1,
		MaxUploadMB:   1,
	}
}

func newTestServer(t *testing.T, p *profile.Profile, sum summary.Summarizer) (*Server, *metrics.PrometheusExporter) {
	t.Helper()
	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
	s, err := NewServer(context.Background(), p, Deps{
		Summarizer: sum,
		Extractor:  extract.NewService(extract.WithRecorder(exporter), extract.WithTempDir(t.TempDir())),
		Metrics:    exporter,
	})
	require.NoError(t, err)
	return s, exporter
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postFile(t *testing.T, h http.Handler, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if name != "" {
		part, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("other", "value"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract-text", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(context.Background(), testProfile(), Deps{Extractor: extract.NewService()})
	assert.Error(t, err)
	_, err = NewServer(context.Background(), testProfile(), Deps{Summarizer: &fakeSummarizer{}})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["version"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	_, err := uuid.Parse(rec.Header().Get("X-Request-Id"))
	assert.NoError(t, err)
}

func TestSummarize(t *testing.T) {
	sum := &fakeSummarizer{}
	s, _ := newTestServer(t, testProfile(), sum)

	rec := postJSON(t, s, "/api/summarize", `{"text":"The quick brown fox"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "The quick brown fox", body["original_text"])
	assert.Equal(t, "summary of The quick brown fox", body["summary"])
}

func TestSummarize_Cache(t *testing.T) {
	sum := &fakeSummarizer{}
	s, exporter := newTestServer(t, testProfile(), sum)

	for range 3 {
		rec := postJSON(t, s, "/api/summarize", `{"text":"repeat me"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "summary of repeat me", decode(t, rec)["summary"])
	}
	assert.Equal(t, 1, sum.count())

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "textsummarizer_server_cache_hits_total 2")
	assert.Contains(t, rec.Body.String(), "textsummarizer_server_cache_misses_total 1")
}

func TestSummarize_NoCache(t *testing.T) {
	p := testProfile()
	p.CacheSize = 0
	sum := &fakeSummarizer{}
	s, _ := newTestServer(t, p, sum)

	postJSON(t, s, "/api/summarize", `{"text":"twice"}`)
	postJSON(t, s, "/api/summarize", `{"text":"twice"}`)
	assert.Equal(t, 2, sum.count())
}

func TestSummarize_Failure(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("upstream exploded: secret detail")}
	s, _ := newTestServer(t, testProfile(), sum)

	rec := postJSON(t, s, "/api/summarize", `{"text":"anything"}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "failed to summarize", body["message"])
	assert.NotContains(t, rec.Body.String(), "secret detail")

	// Failures are not cached.
	postJSON(t, s, "/api/summarize", `{"text":"anything"}`)
	assert.Equal(t, 2, sum.count())
}

func TestSummarize_EmptyText(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), summary.NewPipeline(nil))

	for _, body := range []string{`{"text":""}`, `{"text":"   "}`, `{}`} {
		rec := postJSON(t, s, "/api/summarize", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, "", decode(t, rec)["summary"], body)
	}
}

func TestSummarize_InvalidBody(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})
	rec := postJSON(t, s, "/api/summarize", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummarize_RateLimit(t *testing.T) {
	p := testProfile()
	p.RateLimit = 0.001
	p.RateBurst = 1
	s, exporter := newTestServer(t, p, &fakeSummarizer{})

	assert.Equal(t, http.StatusOK, postJSON(t, s, "/api/summarize", `{"text":"one"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(t, s, "/api/summarize", `{"text":"two"}`).Code)

	rec := httptest.NewRecorder()
	exporter.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `textsummarizer_server_summarize_requests_total{status="rate_limited"} 1`)
}

func TestExtractText(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})

	tests := []struct {
		name     string
		fileName string
		data     []byte
		code     int
		text     string
	}{
		{name: "plain text", fileName: "notes.txt", data: []byte("hello from a file"), code: http.StatusOK, text: "hello from a file"},
		{name: "missing file", code: http.StatusOK, text: ""},
		{name: "unsupported extension", fileName: "photo.png", data: []byte{0x89, 'P', 'N', 'G'}, code: http.StatusOK, text: ""},
		{name: "empty file", fileName: "empty.txt", code: http.StatusOK, text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postFile(t, s, tt.fileName, tt.data)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, tt.text, decode(t, rec)["text"])
		})
	}
}

func TestExtractText_Failure(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})

	rec := postFile(t, s, "broken.docx", []byte("definitely not a zip archive"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "failed to extract text", decode(t, rec)["message"])
}

func TestExtractText_BodyLimit(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})

	rec := postFile(t, s, "big.txt", bytes.Repeat([]byte("a"), 2<<20))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, testProfile(), &fakeSummarizer{})
	postJSON(t, s, "/api/summarize", `{"text":"count me"}`)
	postFile(t, s, "notes.txt", []byte("words"))

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `textsummarizer_server_summarize_requests_total{status="success"} 1`)
	assert.Contains(t, rec.Body.String(), `textsummarizer_server_extract_requests_total{format="txt",status="success"} 1`)
}

func TestStartShutdown(t *testing.T) {
	p := testProfile()
	p.Port = 0
	s, _ := newTestServer(t, p, &fakeSummarizer{})

	require.NoError(t, s.Start(context.Background()))
	defer s.Shutdown(context.Background())
	require.NotEmpty(t, s.Addr())

	c := client.New("http://" + s.Addr())
	require.NoError(t, c.Ping(context.Background()))

	got, err := c.Summarize(context.Background(), "over the wire")
	require.NoError(t, err)
	assert.Equal(t, "summary of over the wire", got)
}
