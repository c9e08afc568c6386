package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

// fakeDocumentServer mimics the document API with an in-memory map.
type fakeDocumentServer struct {
	mu        sync.Mutex
	docs      map[string]json.RawMessage
	failPuts  bool
	lastToken string
}

func (f *fakeDocumentServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastToken = r.Header.Get("Authorization")
	username := r.PathValue("username")

	switch r.Method {
	case http.MethodGet:
		doc, ok := f.docs[username]
		if !ok {
			http.Error(w, `{"title":"Not Found"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]json.RawMessage{"record": doc})
	case http.MethodPut:
		if f.failPuts {
			http.Error(w, "storage offline", http.StatusServiceUnavailable)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.docs[username] = body
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"record":` + string(body) + `}`))
	}
}

func setupHTTPStore(t *testing.T) (*HTTP, *fakeDocumentServer) {
	t.Helper()
	fake := &fakeDocumentServer{docs: map[string]json.RawMessage{}}
	mux := http.NewServeMux()
	mux.Handle("/api/v1/documents/{username}", fake)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	h, err := NewHTTP(HTTPOptions{BaseURL: srv.URL + "/", Token: "v4.local.token", Timeout: 5 * time.Second, RequestsPerSecond: 1000}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h, fake
}

func TestHTTP_Contract(t *testing.T) {
	h, fake := setupHTTPStore(t)

	storeContract(t, h)
	assert.Equal(t, "Bearer v4.local.token", fake.lastToken)
}

func TestHTTP_WriteFailureIsRemoteWrite(t *testing.T) {
	h, fake := setupHTTPStore(t)
	fake.failPuts = true

	err := h.WriteDocument(context.Background(), domain.NewDocument("alice"))
	require.Error(t, err)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrRemoteWrite))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.Status)
	assert.Contains(t, statusErr.Body, "storage offline")
}

func TestHTTP_UnreachableServerIsRemoteRead(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	h, err := NewHTTP(HTTPOptions{BaseURL: url, Token: "t", Timeout: time.Second}, logger.Discard())
	require.NoError(t, err)
	defer h.Close()

	_, err = h.FetchDocument(context.Background(), "alice")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrRemoteRead))

	doc := FetchOrDefault(context.Background(), h, "alice", logger.Discard())
	assert.Equal(t, "alice", doc.Username)
}

func TestHTTP_Validate(t *testing.T) {
	h, err := NewHTTP(HTTPOptions{BaseURL: "ftp://docs.example.com", Token: "t"}, logger.Discard())
	require.NoError(t, err)
	defer h.Close()
	assert.Error(t, Validate(h))

	h2, err := NewHTTP(HTTPOptions{BaseURL: "https://docs.example.com"}, logger.Discard())
	require.NoError(t, err)
	defer h2.Close()
	assert.Error(t, h2.Validate())

	h3, err := NewHTTP(HTTPOptions{BaseURL: "https://docs.example.com", Token: "t"}, logger.Discard())
	require.NoError(t, err)
	defer h3.Close()
	assert.NoError(t, Validate(h3))
}
