package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
)

// Well-known keys.
const (
	KeyUserData      = "tilecatread_user_data"
	KeyLastLoginUser = "last_login_user"
	KeyDeviceID      = "device_id"
)

// Cache stores JSON values on a Backend. Its methods never return storage
// errors: failures are logged and reads degrade to a miss.
type Cache struct {
	backend Backend
	logger  *slog.Logger
}

// New wraps backend.
func New(backend Backend, logger *slog.Logger) *Cache {
	return &Cache{backend: backend, logger: logger}
}

// Open selects the backend once. When inMemory is false it tries a badger
// database at path and falls back to memory if that fails.
func Open(path string, inMemory bool, logger *slog.Logger) *Cache {
	if inMemory {
		logger.Info("local cache running in memory", "reason", "configured")
		return New(NewMemory(), logger)
	}

	if err := os.MkdirAll(path, 0o700); err != nil {
		logger.Warn("local cache degraded to memory", "path", path, "error", err)
		return New(NewMemory(), logger)
	}

	b, err := OpenBadger(path)
	if err != nil {
		logger.Warn("local cache degraded to memory", "path", path, "error", err)
		return New(NewMemory(), logger)
	}

	logger.Debug("local cache opened", "path", path)
	return New(b, logger)
}

// Persistent reports whether values survive a restart.
func (c *Cache) Persistent() bool {
	return c.backend.Persistent()
}

// Save stores value as JSON under key.
func (c *Cache) Save(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache save skipped: value not serializable", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(key, data); err != nil {
		c.logger.Warn("cache save failed", "key", key, "error", err)
	}
}

// Load decodes the value under key into dst. It reports false on a miss,
// a storage failure or undecodable JSON.
func (c *Cache) Load(key string, dst any) bool {
	data, err := c.backend.Get(key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache load failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

// Remove deletes key.
func (c *Cache) Remove(key string) {
	if err := c.backend.Delete(key); err != nil {
		c.logger.Warn("cache remove failed", "key", key, "error", err)
	}
}

// Close releases the backend.
func (c *Cache) Close() error {
	return c.backend.Close()
}
