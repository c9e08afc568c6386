// Package service holds the Manager, the single authority over the current
// session and every change to a user's document.
//
// Each mutation reads the whole document from the remote store, applies the
// change in memory, writes the whole document back and only then refreshes
// the local cache. Mutations on one Manager are serialized; writers on other
// devices still follow last-write-wins.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/device"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
	"github.com/icberg-810202/tilecatread/internal/id"
	"github.com/icberg-810202/tilecatread/internal/playback"
	"github.com/icberg-810202/tilecatread/internal/remote"
	"github.com/icberg-810202/tilecatread/internal/search"
	"github.com/icberg-810202/tilecatread/internal/validation"
)

// State is the Manager lifecycle.
type State int

// Manager states.
const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// cachedDocument is the value stored under cache.KeyUserData.
type cachedDocument struct {
	Username  string           `json:"username"`
	Data      *domain.Document `json:"data"`
	Timestamp int64            `json:"timestamp"`
}

// Deps are the Manager's collaborators.
type Deps struct {
	Remote     remote.Store
	Cache      *cache.Cache
	Selections *device.SelectionStore
	Settings   *playback.SettingsStore
	Player     *playback.Player
	Index      *search.Index
	Hasher     *auth.Hasher
	Validator  *validation.Validator
	Logger     *slog.Logger
}

// Manager coordinates authentication, book and quote changes, device
// selections, playback settings and import/export.
type Manager struct {
	remote     remote.Store
	cache      *cache.Cache
	selections *device.SelectionStore
	settings   *playback.SettingsStore
	player     *playback.Player
	index      *search.Index
	hasher     *auth.Hasher
	validator  *validation.Validator
	logger     *slog.Logger

	now   func() time.Time
	newID func(prefix string) (string, error)

	// mu serializes operations that write the remote document.
	mu sync.Mutex

	stateMu sync.RWMutex
	state   State
	current string
}

// NewManager creates an uninitialized Manager.
func NewManager(d Deps) *Manager {
	return &Manager{
		remote:     d.Remote,
		cache:      d.Cache,
		selections: d.Selections,
		settings:   d.Settings,
		player:     d.Player,
		index:      d.Index,
		hasher:     d.Hasher,
		validator:  d.Validator,
		logger:     d.Logger,
		now:        time.Now,
		newID:      id.Generate,
	}
}

// Initialize checks the remote configuration and restores the session of
// the user whose document is in the local cache. The restored session is
// trusted without re-authentication. Only an invalid remote configuration
// makes it fail.
func (m *Manager) Initialize(ctx context.Context) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.state == StateReady {
		return nil
	}
	m.state = StateInitializing

	if err := remote.Validate(m.remote); err != nil {
		m.state = StateUninitialized
		return domainerrors.Wrap(err, domainerrors.CodeValidation, "remote store configuration is invalid")
	}

	var cached cachedDocument
	if m.cache.Load(cache.KeyUserData, &cached) && cached.Username != "" {
		m.current = cached.Username
		m.logger.Info("session restored from cache", "username", cached.Username)
	} else {
		m.logger.Debug("no cached session")
	}

	m.state = StateReady
	return nil
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// CurrentUser returns the logged-in username, or "".
func (m *Manager) CurrentUser() string {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.current
}

func (m *Manager) setCurrent(username string) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.current = username
}

func (m *Manager) ready() error {
	if m.State() != StateReady {
		return domainerrors.NotReady("manager is not initialized")
	}
	return nil
}

// sessionUser returns the current user or NOT_LOGGED_IN.
func (m *Manager) sessionUser() (string, error) {
	if err := m.ready(); err != nil {
		return "", err
	}
	u := m.CurrentUser()
	if u == "" {
		return "", domainerrors.NotLoggedIn()
	}
	return u, nil
}

// targetUser returns userID when given, otherwise the current user.
func (m *Manager) targetUser(userID string) (string, error) {
	if userID != "" {
		if err := m.ready(); err != nil {
			return "", err
		}
		return userID, nil
	}
	return m.sessionUser()
}

// fetchStrict reads username's document. A missing document reads as the
// empty shape; transport failures are returned as REMOTE_READ.
func (m *Manager) fetchStrict(ctx context.Context, username string) (*domain.Document, error) {
	doc, err := m.remote.FetchDocument(ctx, username)
	switch {
	case err == nil:
		return doc, nil
	case domainerrors.Is(err, domainerrors.ErrNotFound):
		return domain.NewDocument(username), nil
	case domainerrors.Is(err, domainerrors.ErrRemoteRead):
		return nil, err
	default:
		return nil, domainerrors.RemoteRead(err, "read document for %s", username)
	}
}

// fetch reads username's document, degrading to the empty shape on failure.
func (m *Manager) fetch(ctx context.Context, username string) *domain.Document {
	return remote.FetchOrDefault(ctx, m.remote, username, m.logger)
}

// mutate runs one read-modify-write cycle for username. fn changes the
// document in place. The cache is only refreshed after the store confirms
// the write.
func (m *Manager) mutate(ctx context.Context, username string, fn func(doc *domain.Document) error) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.fetchStrict(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	if err := m.write(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// write stamps and stores doc, then refreshes the cache. Callers hold mu.
func (m *Manager) write(ctx context.Context, doc *domain.Document) error {
	doc.Touch(m.now().UTC())
	if err := m.remote.WriteDocument(ctx, doc); err != nil {
		m.logger.Error("remote write failed", "username", doc.Username, "error", err)
		if domainerrors.Is(err, domainerrors.ErrRemoteWrite) || domainerrors.Is(err, domainerrors.ErrValidation) {
			return err
		}
		return domainerrors.RemoteWrite(err, "write document for %s", doc.Username)
	}
	m.cacheDocument(doc)
	return nil
}

// cacheDocument mirrors doc locally without its password hash.
func (m *Manager) cacheDocument(doc *domain.Document) {
	clean := *doc
	clean.PasswordHash = ""
	m.cache.Save(cache.KeyUserData, cachedDocument{
		Username:  doc.Username,
		Data:      &clean,
		Timestamp: m.now().UnixMilli(),
	})
}

// cachedBooks returns the books of username's cached document, if the cache
// holds that user's document.
func (m *Manager) cachedBooks(username string) ([]domain.Book, bool) {
	var cached cachedDocument
	if !m.cache.Load(cache.KeyUserData, &cached) || cached.Username != username || cached.Data == nil {
		return nil, false
	}
	return cached.Data.Books, true
}

// uniqueID generates an id with prefix that taken does not report as used.
func (m *Manager) uniqueID(prefix string, taken func(string) bool) (string, error) {
	for {
		v, err := m.newID(prefix)
		if err != nil {
			return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "generate id")
		}
		if !taken(v) {
			return v, nil
		}
	}
}
