package service

import (
	"context"
	"strings"
	"time"

	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/domain"
	domainerrors "github.com/icberg-810202/tilecatread/internal/errors"
)

// User identifies an account.
type User struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// RegisterRequest contains the credentials for a new account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64,username"`
	Password string `json:"password" validate:"required,max=1024,password"`
}

// LoginRequest contains credentials.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterUser creates username's document with no books and logs the new
// user in. The existence check reads the store strictly, so an outage is
// reported instead of overwriting an account it could not see.
func (m *Manager) RegisterUser(ctx context.Context, username, password string) (*User, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	req := RegisterRequest{Username: strings.TrimSpace(username), Password: password}
	if err := m.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := m.hasher.Hash(req.Password)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "hash password")
	}

	doc, err := m.mutate(ctx, req.Username, func(doc *domain.Document) error {
		if doc.Registered() {
			return domainerrors.DuplicateUser(req.Username)
		}
		doc.Username = req.Username
		doc.PasswordHash = hash
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = m.now().UTC()
		}
		return nil
	})
	if err != nil {
		m.logger.Info("registration failed", "username", req.Username, "error", err)
		return nil, err
	}

	m.setCurrent(req.Username)
	m.cache.Save(cache.KeyLastLoginUser, req.Username)
	m.logger.Info("user registered", "username", req.Username)
	return &User{Username: doc.Username, CreatedAt: doc.CreatedAt}, nil
}

// AuthenticateUser verifies the password, makes username the current user
// and refreshes the cache with the user's document.
func (m *Manager) AuthenticateUser(ctx context.Context, username, password string) (*User, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	req := LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := m.validator.Validate(req); err != nil {
		return nil, err
	}

	doc, err := m.remote.FetchDocument(ctx, req.Username)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFoundf("user %q does not exist", req.Username)
		}
		if !domainerrors.Is(err, domainerrors.ErrRemoteRead) {
			err = domainerrors.RemoteRead(err, "read document for %s", req.Username)
		}
		return nil, err
	}
	if !doc.Registered() {
		return nil, domainerrors.NotFoundf("user %q does not exist", req.Username)
	}
	if !m.hasher.Verify(doc.PasswordHash, req.Password) {
		m.logger.Info("login rejected", "username", req.Username)
		return nil, domainerrors.InvalidCredentials("incorrect password")
	}

	m.setCurrent(req.Username)
	m.cacheDocument(doc)
	m.cache.Save(cache.KeyLastLoginUser, req.Username)
	m.logger.Info("user logged in", "username", req.Username)
	return &User{Username: doc.Username, CreatedAt: doc.CreatedAt}, nil
}

// LogoutUser clears the current user and the cached document. The last
// login user is kept for the splash screen. Calling it again is a no-op.
func (m *Manager) LogoutUser(ctx context.Context) error {
	if err := m.ready(); err != nil {
		return err
	}
	prev := m.CurrentUser()
	m.setCurrent("")
	m.cache.Remove(cache.KeyUserData)
	if m.index != nil && prev != "" {
		if err := m.index.DeleteUser(prev); err != nil {
			m.logger.Warn("failed to drop search entries on logout", "username", prev, "error", err)
		}
	}
	if prev != "" {
		m.logger.Info("user logged out", "username", prev)
	}
	return nil
}
