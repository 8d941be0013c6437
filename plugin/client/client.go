// Package client talks to the summarization backend over HTTP.
//
// Client implements session.Summarizer and session.Extractor so a Store can
// run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/textsummarizer/internal/version"
	"github.com/hrygo/textsummarizer/session"
)

const (
	summarizePath = "/api/summarize"
	extractPath   = "/api/extract-text"
	healthPath    = "/healthz"

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20
)

var (
	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status from backend")
	// ErrMalformedResponse is returned for bodies that are not the expected JSON object.
	ErrMalformedResponse = errors.New("malformed response from backend")
	// ErrIncompatibleBackend is returned by CheckVersion when the backend runs
	// another major.minor release, or reports no valid version.
	ErrIncompatibleBackend = errors.New("backend runs an incompatible release")
	// ErrOutdatedBackend is returned by CheckVersion when the backend is an
	// older patch of the client's release.
	ErrOutdatedBackend = errors.New("backend is older than the client")
)

// Client is an HTTP client for the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client for the backend at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type summarizeRequest struct {
	Text string `json:"text"`
}

// Summarize posts text to the backend and returns the raw summary field.
// A response without a summary field yields a nil result.
func (c *Client) Summarize(ctx context.Context, text string) (any, error) {
	body, err := json.Marshal(summarizeRequest{Text: text})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal summarize request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+summarizePath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to construct request to %s", summarizePath)
	}
	req.Header.Set("Content-Type", "application/json")

	b, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s: %v", summarizePath, err)
	}
	if fields == nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s: body is not a JSON object", summarizePath)
	}
	raw, ok := fields["summary"]
	if !ok {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "failed to decode summary field")
	}
	return result, nil
}

// Extract uploads a file to the backend and returns its plain text.
func (c *Client) Extract(ctx context.Context, file *session.File) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return "", errors.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", errors.Wrap(err, "failed to write file data")
	}
	if err := writer.Close(); err != nil {
		return "", errors.Wrap(err, "failed to close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+extractPath, body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to construct request to %s", extractPath)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	b, err := c.do(req)
	if err != nil {
		return "", err
	}

	var response *struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &response); err != nil {
		return "", errors.Wrapf(ErrMalformedResponse, "%s: %v", extractPath, err)
	}
	if response == nil {
		return "", errors.Wrapf(ErrMalformedResponse, "%s: body is not a JSON object", extractPath)
	}
	return response.Text, nil
}

// Health is the backend's health report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health fetches the backend health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to construct health request")
	}
	b, err := c.do(req)
	if err != nil {
		return nil, err
	}
	health := &Health{}
	if err := json.Unmarshal(b, health); err != nil {
		return nil, errors.Wrapf(ErrMalformedResponse, "%s: %v", healthPath, err)
	}
	return health, nil
}

// Ping checks that the backend answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// CheckVersion compares the backend release with clientVersion and returns
// the version the backend reports. Any patch of the same major.minor release
// is accepted; an older one is reported with ErrOutdatedBackend.
func (c *Client) CheckVersion(ctx context.Context, clientVersion string) (string, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return "", err
	}
	backend := health.Version
	if !version.IsValid(backend) {
		return backend, errors.Wrapf(ErrIncompatibleBackend, "backend reports version %q", backend)
	}
	if version.GetMinorVersion(backend) != version.GetMinorVersion(clientVersion) {
		return backend, errors.Wrapf(ErrIncompatibleBackend, "backend %s, client %s", backend, clientVersion)
	}
	if version.IsVersionGreaterThan(clientVersion, backend) {
		return backend, errors.Wrapf(ErrOutdatedBackend, "backend %s, client %s", backend, clientVersion)
	}
	return backend, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to post to %s", req.URL.Path)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response from %s", req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrUnexpectedStatus, "%s returned %d: %s", req.URL.Path, resp.StatusCode, bytes.TrimSpace(b))
	}
	return b, nil
}
