package remote

import (
	"context"
	"sync"

	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// Memory keeps encoded documents in process. Useful for tests and for
// trying the CLI without a backend.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// FetchDocument implements Store.
func (m *Memory) FetchDocument(ctx context.Context, username string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domainerrors.RemoteRead(err, "fetch document for %s", username)
	}
	m.mu.RLock()
	data, ok := m.docs[username]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(username)
	}
	return decodeDocument(data, username)
}

// WriteDocument implements Store.
func (m *Memory) WriteDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[doc.Username] = data
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
