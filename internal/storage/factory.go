package storage

import (
	"fmt"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/logging"
	"github.com/OCAP2/campath/internal/storage/memory"
	"github.com/OCAP2/campath/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/campath/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// NewBackend creates a storage backend based on configuration.
// The backend still has to be initialized with Init.
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.Postgres, logManager, dbLog), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, logManager, dbLog), nil
	case "memory", "":
		return memory.New(cfg.Memory, logManager), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
