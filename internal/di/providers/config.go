// Package providers contains dependency injection providers for fosse.
package providers

import (
	"os"

	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/logger"
)

// ProvideLogger provides the structured logger. The caller closes it after
// the container has shut down.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log, err := logger.New(logger.Config{
		Writer:      os.Stderr,
		File:        cfg.LogFile,
		Level:       logger.ParseLevel(cfg.LogLevel),
		AddSource:   cfg.IsDevelopment(),
		Environment: cfg.Environment,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("logger initialized",
		"environment", cfg.Environment,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)
	return log, nil
}
