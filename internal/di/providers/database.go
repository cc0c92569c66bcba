package providers

import (
	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/store/sqlite"
)

// StoreHandle wraps the catalog store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the SQLite catalog at db_file.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.DBFile, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("catalog opened", "path", cfg.DBFile)
	return &StoreHandle{Store: db}, nil
}
