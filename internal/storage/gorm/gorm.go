// Package gormstorage implements the path library on top of GORM. The
// sqlite and postgres backends embed it and only differ in how the
// connection is made.
package gormstorage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/OCAP2/campath/internal/database"
	"github.com/OCAP2/campath/internal/logging"
	"github.com/OCAP2/campath/internal/model"
	"github.com/OCAP2/campath/internal/model/convert"
	"github.com/OCAP2/campath/internal/queue"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	DBLog      zerolog.Logger

	// WriteInterval batches saves in a background writer. Zero writes
	// every save before SavePath returns.
	WriteInterval time.Duration
}

type pendingWrite struct {
	rec  model.PathRecord
	path *core.Path
}

// Backend implements storage.Backend with GORM.
type Backend struct {
	deps    Dependencies
	pending *queue.Queue[pendingWrite]

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Backend{
		deps:    deps,
		pending: queue.New[pendingWrite](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the background writer if batching is enabled.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}
	if err := database.Migrate(b.deps.DB, b.deps.DBLog); err != nil {
		return err
	}

	if b.deps.WriteInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.writeLoop()
	}
	return nil
}

// Close stops the background writer and writes anything still queued.
// The connection itself stays open.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
			<-b.done
		}
	})
	return b.Flush()
}

// Pending returns the number of saves not yet written.
func (b *Backend) Pending() int {
	return b.pending.Len()
}

// SavePath queues p for writing. Without a write interval the write
// happens immediately and p.ID is set on return; otherwise p.ID is set
// once the write is flushed.
func (b *Backend) SavePath(p *core.Path) error {
	if p.Name == "" {
		return fmt.Errorf("camera path has no name")
	}
	rec, err := convert.PathToRecord(p)
	if err != nil {
		return err
	}
	w := pendingWrite{rec: rec, path: p}

	if b.deps.WriteInterval > 0 {
		b.pending.Push(w)
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.write(w)
}

// Flush writes every queued save in order. On the first failure the
// failed save and everything after it stay queued for the next flush.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	batch := b.pending.Drain()
	for i, w := range batch {
		if err := b.write(w); err != nil {
			b.pending.Requeue(batch[i:]...)
			return fmt.Errorf("%w (%d saves still queued)", err, len(batch)-i)
		}
	}
	return nil
}

func (b *Backend) write(w pendingWrite) error {
	rec := w.rec
	rec.Poses = slices.Clone(w.rec.Poses)
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := deleteByName(tx, rec.Name); err != nil && !errors.Is(err, core.ErrPathNotFound) {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save camera path %q: %w", rec.Name, err)
	}
	w.path.ID = rec.ID
	w.path.CreatedAt = rec.CreatedAt
	return nil
}

// GetPath loads a path with its poses in sequence order.
func (b *Backend) GetPath(name string) (*core.Path, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var rec model.PathRecord
	err := b.deps.DB.
		Preload("Poses", func(db *gorm.DB) *gorm.DB { return db.Order("seq") }).
		Where("name = ?", name).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrPathNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return convert.RecordToPath(rec), nil
}

// ListPaths summarizes every stored path ordered by name.
func (b *Backend) ListPaths() ([]core.PathInfo, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}

	var recs []model.PathRecord
	if err := b.deps.DB.Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]core.PathInfo, len(recs))
	for i, rec := range recs {
		info, err := convert.RecordToInfo(rec)
		if err != nil {
			return nil, err
		}
		out[i] = info
	}
	return out, nil
}

// DeletePath removes a path and its poses.
func (b *Backend) DeletePath(name string) error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		return deleteByName(tx, name)
	})
}

func deleteByName(tx *gorm.DB, name string) error {
	var existing model.PathRecord
	err := tx.Select("id").Where("name = ?", name).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", core.ErrPathNotFound, name)
	}
	if err != nil {
		return err
	}

	if err := tx.Where("path_id = ?", existing.ID).Delete(&model.PoseRecord{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.PathRecord{}, existing.ID).Error
}

// writeLoop flushes queued saves every WriteInterval until Close.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.LogManager.WriteLog("gorm:writeLoop", fmt.Sprintf("Error writing camera paths: %v", err), "ERROR")
			}
		}
	}
}
