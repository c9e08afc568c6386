// Package providers contains dependency injection providers for the quotes
// CLI and the document server.
package providers

import (
	"io"
	"log/slog"
	"os"

	"github.com/samber/do/v2"

	"github.com/icberg-810202/tilecatread/internal/config"
	"github.com/icberg-810202/tilecatread/internal/logger"
)

// LogOutput is where the logger writes. The CLI uses stderr so command
// output on stdout stays clean.
type LogOutput struct {
	io.Writer
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)
	out, err := do.Invoke[LogOutput](i)
	if err != nil || out.Writer == nil {
		out = LogOutput{Writer: os.Stdout}
	}

	log := logger.New(logger.Config{
		Writer:      out.Writer,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Debug("configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.App.DataDir,
		"remote_backend", cfg.Remote.Backend,
	)

	return log, nil
}

// ProvideSlogLogger provides the underlying slog.Logger for packages that
// take one.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
