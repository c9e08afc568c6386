package providers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/api"
	"github.com/icberg-810202/tilecatread/internal/auth"
	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

// DocumentServerHandle wraps the API handler with shutdown capability.
type DocumentServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *DocumentServerHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideDocumentServer provides the document API handler.
func ProvideDocumentServer(i do.Injector) (*DocumentServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	store := do.MustInvoke[*RemoteHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	if cfg.Remote.Backend == config.BackendHTTP {
		return nil, errors.New("the document server cannot use the http backend as its own store")
	}

	handler := api.NewServer(store.Store, tokens, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	}, log.Component("api"))

	return &DocumentServerHandle{Server: handler}, nil
}

// HTTPServerHandle wraps http.Server with shutdown capability.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the
// background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	handler := do.MustInvoke[*DocumentServerHandle](i)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr, "backend", cfg.Remote.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
