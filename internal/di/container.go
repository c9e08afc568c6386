// Package di wires the quotes CLI and the document server with samber/do.
package di

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/di/providers"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

func newBase(cfg *config.Config, logOutput io.Writer) *do.RootScope {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, providers.LogOutput{Writer: logOutput})
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideRemoteStore)

	return injector
}

// NewClientContainer creates the container used by the quotes CLI. Services
// are built lazily, so commands that never touch the store never open it.
func NewClientContainer(cfg *config.Config, logOutput io.Writer) *do.RootScope {
	injector := newBase(cfg, logOutput)

	// Local state
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSelectionStore)
	do.Provide(injector, providers.ProvideSettingsStore)
	do.Provide(injector, providers.ProvidePlayer)

	// Business services
	do.Provide(injector, providers.ProvideHasher)
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideManager)
	do.Provide(injector, providers.ProvideBackupDir)

	return injector
}

// NewServerContainer creates the container used by the document server.
func NewServerContainer(cfg *config.Config, logOutput io.Writer) *do.RootScope {
	injector := newBase(cfg, logOutput)

	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideDocumentServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// BootstrapServer builds the server graph and starts listening.
func BootstrapServer(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.RemoteHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
