// Package device identifies this installation and remembers which books it
// plays on the splash screen. Both survive logout, so the splash can run
// before anyone signs in.
package device

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/domain"
	"github.com/icberg-810202/tilecatread/internal/id"
)

const selectionKeyPrefix = "device_selection:"

// LoadOrCreateID returns the device id stored in c, generating and storing
// one on first use.
func LoadOrCreateID(c *cache.Cache) string {
	var stored string
	if c.Load(cache.KeyDeviceID, &stored) && strings.TrimSpace(stored) != "" {
		return stored
	}
	fresh := id.NewDeviceID()
	c.Save(cache.KeyDeviceID, fresh)
	return fresh
}

// SelectionStore keeps one DeviceSelection per device id in the local cache.
type SelectionStore struct {
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewSelectionStore creates a store on c.
func NewSelectionStore(c *cache.Cache, logger *slog.Logger) *SelectionStore {
	return &SelectionStore{cache: c, logger: logger, now: time.Now}
}

func selectionKey(deviceID string) string {
	return selectionKeyPrefix + deviceID
}

// Get returns the selection for deviceID. Missing or unreadable entries
// yield an empty selection.
func (s *SelectionStore) Get(deviceID string) domain.DeviceSelection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sel domain.DeviceSelection
	if !s.cache.Load(selectionKey(deviceID), &sel) {
		return domain.DeviceSelection{SelectedBookIDs: []string{}}
	}
	if sel.SelectedBookIDs == nil {
		sel.SelectedBookIDs = []string{}
	}
	return sel
}

// Save replaces the selection for deviceID with bookIDs.
func (s *SelectionStore) Save(deviceID string, bookIDs []string) domain.DeviceSelection {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel := domain.NewDeviceSelection(bookIDs, s.now())
	s.cache.Save(selectionKey(deviceID), sel)
	s.logger.Debug("device selection saved", "device_id", deviceID, "books", len(sel.SelectedBookIDs))
	return sel
}

// Clear removes the selection for deviceID.
func (s *SelectionStore) Clear(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(selectionKey(deviceID))
}
