// Package postgres implements the path library on PostgreSQL. Saves are
// queued and written by the background writer of the GORM backend.
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/database"
	"github.com/OCAP2/campath/internal/logging"
	gormstorage "github.com/OCAP2/campath/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

const (
	writeInterval = time.Second
	maxOpenConns  = 10
)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	cfg   config.PostgresConfig
	log   *logging.SlogManager
	dbLog zerolog.Logger
	db    *gorm.DB
}

// New creates a new Postgres storage backend. The connection is made by Init.
func New(cfg config.PostgresConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) *Backend {
	return &Backend{
		cfg:   cfg,
		log:   logManager,
		dbLog: dbLog,
	}
}

// Init connects, validates the connection, migrates the schema and starts
// the writer. A connection already set on the backend is reused.
func (b *Backend) Init() error {
	if b.db == nil {
		db, err := database.GetPostgresDB(b.cfg, b.dbLog)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := database.Ping(db); err != nil {
			_ = database.Close(db)
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
		b.db = db
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:            b.db,
		LogManager:    b.log,
		DBLog:         b.dbLog,
		WriteInterval: writeInterval,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.dbLog.Info().Str("host", b.cfg.Host).Str("database", b.cfg.Database).Msg("Connected to database")
	return nil
}

// Close flushes pending saves and closes the connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	err = errors.Join(err, database.Close(b.db))
	b.db = nil
	return err
}
