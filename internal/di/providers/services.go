package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/backup"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/device"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/playback"
	"github.com/icberg-810202/tilecatread/internal/service"
	"github.com/icberg-810202/tilecatread/internal/validation"
)

// ProvideSelectionStore provides the per-device book selection store.
func ProvideSelectionStore(i do.Injector) (*device.SelectionStore, error) {
	c := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return device.NewSelectionStore(c.Cache, log.Component("device")), nil
}

// ProvideSettingsStore provides the playback settings store.
func ProvideSettingsStore(i do.Injector) (*playback.SettingsStore, error) {
	c := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return playback.NewSettingsStore(c.Cache, log.Component("playback")), nil
}

// ProvidePlayer provides the splash quote player.
func ProvidePlayer(i do.Injector) (*playback.Player, error) {
	settings := do.MustInvoke[*playback.SettingsStore](i)
	selections := do.MustInvoke[*device.SelectionStore](i)
	log := do.MustInvoke[*logger.Logger](i)
	return playback.NewPlayer(settings, selections, nil, log.Component("playback")), nil
}

// ProvideManager provides the initialized data manager.
func ProvideManager(i do.Injector) (*service.Manager, error) {
	log := do.MustInvoke[*logger.Logger](i)

	m := service.NewManager(service.Deps{
		Remote:     do.MustInvoke[*RemoteHandle](i).Store,
		Cache:      do.MustInvoke[*CacheHandle](i).Cache,
		Selections: do.MustInvoke[*device.SelectionStore](i),
		Settings:   do.MustInvoke[*playback.SettingsStore](i),
		Player:     do.MustInvoke[*playback.Player](i),
		Index:      do.MustInvoke[*SearchIndexHandle](i).Index,
		Hasher:     do.MustInvoke[*auth.Hasher](i),
		Validator:  do.MustInvoke[*validation.Validator](i),
		Logger:     log.Component("manager"),
	})
	if err := m.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// ProvideBackupDir provides the directory exports are written to.
func ProvideBackupDir(i do.Injector) (*backup.Dir, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return backup.NewDir(filepath.Join(cfg.App.DataDir, "exports"), log.Component("backup")), nil
}
