package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/cache"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/remote"
)

// CacheHandle wraps the local cache with shutdown capability.
type CacheHandle struct {
	*cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache opens the local cache. A cache that cannot be persisted
// degrades to memory instead of failing.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	c := cache.Open(cfg.Cache.Path, cfg.Cache.InMemory, log.Component("cache"))
	log.Debug("local cache ready", "path", cfg.Cache.Path, "persistent", c.Persistent())

	return &CacheHandle{Cache: c}, nil
}

// RemoteHandle wraps the remote document store with shutdown capability.
type RemoteHandle struct {
	remote.Store
}

// Shutdown implements do.Shutdownable.
func (h *RemoteHandle) Shutdown() error {
	return h.Close()
}

// ProvideRemoteStore connects to the configured remote backend.
func ProvideRemoteStore(i do.Injector) (*RemoteHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	store, err := remote.Open(context.Background(), cfg.Remote, log.Component("remote"))
	if err != nil {
		return nil, err
	}

	log.Debug("remote store ready", "backend", cfg.Remote.Backend)
	return &RemoteHandle{Store: store}, nil
}
