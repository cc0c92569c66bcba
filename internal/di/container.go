// Package di wires fosse's components with a samber/do container.
package di

import (
	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/di/providers"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/metrics"
	"github.com/fosse-media/fosse/internal/scanner"
)

// NewContainer creates the DI container for cfg. Nothing is constructed
// until it is invoked.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Scanner layer
	do.Provide(injector, providers.ProvideExtractor)
	do.Provide(injector, providers.ProvideScanner)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)
	do.Provide(injector, providers.ProvideScheduler)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the catalog, search index and scanner. Servers and
// workers are invoked by the commands that need them.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*metrics.Metrics](injector)
	if _, err := do.Invoke[*scanner.Scanner](injector); err != nil {
		return err
	}

	// Rebuild the search index if it was lost.
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
