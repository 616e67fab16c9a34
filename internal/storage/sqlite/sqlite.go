// Package sqlitestorage implements the path library on SQLite. It wraps the
// GORM backend and either works on the database file directly or, with a
// dump interval, on an in-memory copy written out via VACUUM INTO.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/database"
	"github.com/OCAP2/campath/internal/logging"
	"github.com/OCAP2/campath/internal/model"
	gormstorage "github.com/OCAP2/campath/internal/storage/gorm"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      config.SQLiteConfig
	log      *logging.SlogManager
	dbLog    zerolog.Logger
	db       *gorm.DB
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend. Nothing is opened until Init.
func New(cfg config.SQLiteConfig, logManager *logging.SlogManager, dbLog zerolog.Logger) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		cfg:   cfg,
		log:   logManager,
		dbLog: dbLog,
	}
}

func (b *Backend) inMemory() bool {
	return b.cfg.DumpInterval > 0
}

// Init opens the database, restores the last dump when running in memory,
// and starts the dump goroutine.
func (b *Backend) Init() error {
	if b.cfg.Path == "" {
		return fmt.Errorf("sqlite path not set")
	}

	path := b.cfg.Path
	if b.inMemory() {
		path = ""
	}
	db, err := database.GetSqliteDB(path, b.dbLog)
	if err != nil {
		return fmt.Errorf("failed to open SQLite DB: %w", err)
	}
	b.db = db

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:         db,
		LogManager: b.log,
		DBLog:      b.dbLog,
	})
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.inMemory() {
		if err := b.restore(); err != nil {
			return fmt.Errorf("failed to restore %s: %w", b.cfg.Path, err)
		}
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, writes a final dump when in memory and
// closes the connection.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}

	err := b.Backend.Close()
	if b.inMemory() {
		err = errors.Join(err, b.Dump())
	}
	err = errors.Join(err, database.Close(b.db))
	b.db = nil
	return err
}

// Dump writes the in-memory database to the configured path.
func (b *Backend) Dump() error {
	if !b.inMemory() {
		return nil
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.Path, b.dbLog)
}

// restore copies the paths of a previous dump into the in-memory database.
func (b *Backend) restore() error {
	if _, err := os.Stat(b.cfg.Path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	src, err := database.GetSqliteDB(b.cfg.Path, b.dbLog)
	if err != nil {
		return err
	}
	defer database.Close(src)

	if !src.Migrator().HasTable(&model.PathRecord{}) {
		return nil
	}

	var recs []model.PathRecord
	err = src.Preload("Poses", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).Find(&recs).Error
	if err != nil {
		return err
	}
	for i := range recs {
		if err := b.db.Create(&recs[i]).Error; err != nil {
			return err
		}
	}
	b.log.WriteLog("sqlite:restore", fmt.Sprintf("Restored %d camera paths from %s", len(recs), b.cfg.Path), "INFO")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Error dumping to disk: %v", err), "ERROR")
			} else {
				b.log.WriteLog("sqlite:dumpLoop", fmt.Sprintf("Dumped to disk in %s", time.Since(start)), "DEBUG")
			}
		}
	}
}
