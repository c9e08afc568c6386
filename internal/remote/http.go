package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/ratelimit"
)

const (
	documentsPath  = "/api/v1/documents/"
	rateLimitKey   = "documents"
	maxErrorBody   = 512
	maxDocumentLen = 16 << 20
	userAgent      = "tilecatread-client/1"
)

// HTTPOptions configures the document server client.
type HTTPOptions struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Client            *http.Client
}

// StatusError records a non-success HTTP response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// HTTP talks to a document server over its JSON API:
// GET and PUT {base}/api/v1/documents/{username}.
type HTTP struct {
	base    *url.URL
	token   string
	client  *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

type documentEnvelope struct {
	Record *domain.Document `json:"record"`
}

// NewHTTP builds a client. It does not contact the server.
func NewHTTP(opts HTTPOptions, logger *slog.Logger) (*HTTP, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &HTTP{
		base:    base,
		token:   opts.Token,
		client:  client,
		limiter: ratelimit.New(rps, max(1, int(rps))),
		logger:  logger,
	}, nil
}

// Validate implements Validator.
func (h *HTTP) Validate() error {
	if h.base.Scheme != "http" && h.base.Scheme != "https" {
		return fmt.Errorf("remote url must use http or https, got %q", h.base.Scheme)
	}
	if h.base.Host == "" {
		return errors.New("remote url has no host")
	}
	if h.token == "" {
		return errors.New("remote token is empty")
	}
	return nil
}

func (h *HTTP) documentURL(username string) string {
	return h.base.String() + documentsPath + url.PathEscape(username)
}

func (h *HTTP) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	if err := h.limiter.Wait(ctx, rateLimitKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("remote request", "method", method, "url", target, "status", resp.StatusCode, "duration", time.Since(start))
	return resp, nil
}

func statusError(resp *http.Response) *StatusError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}

// FetchDocument implements Store.
func (h *HTTP) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	resp, err := h.do(ctx, http.MethodGet, h.documentURL(username), nil)
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound(username)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domainerrors.RemoteRead(statusError(resp), "fetch document for %s", username)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentLen))
	if err != nil {
		return nil, domainerrors.RemoteRead(err, "read document for %s", username)
	}
	var env documentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, domainerrors.RemoteRead(err, "decode document for %s", username)
	}
	if env.Record == nil {
		return nil, notFound(username)
	}
	if env.Record.Username == "" {
		env.Record.Username = username
	}
	env.Record.Normalize()
	return env.Record, nil
}

// WriteDocument implements Store.
func (h *HTTP) WriteDocument(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	resp, err := h.do(ctx, http.MethodPut, h.documentURL(doc.Username), data)
	if err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domainerrors.RemoteWrite(statusError(resp), "write document for %s", doc.Username)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close stops the limiter.
func (h *HTTP) Close() error {
	h.limiter.Stop()
	h.client.CloseIdleConnections()
	return nil
}
