// Package memory keeps the path library in memory and persists it as one
// JSON export per path.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/campath/internal/config"
	"github.com/OCAP2/campath/internal/logging"
	"github.com/OCAP2/campath/pkg/core"
)

// Backend stores camera paths in memory and exports them to JSON on Close
type Backend struct {
	cfg config.MemoryConfig
	log *logging.SlogManager

	paths   map[string]*core.Path // keyed by name
	deleted map[string]struct{}

	idCounter uint
	mu        sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, logManager *logging.SlogManager) *Backend {
	if logManager == nil {
		logManager = logging.NewSlogManager()
	}
	return &Backend{
		cfg:     cfg,
		log:     logManager,
		paths:   make(map[string]*core.Path),
		deleted: make(map[string]struct{}),
	}
}

// Init loads the exports found in the output directory. Files that cannot
// be read are logged and skipped.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	entries, err := os.ReadDir(b.cfg.OutputDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read output directory: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range entries {
		if e.IsDir() || !isExportFile(e.Name()) {
			continue
		}
		file := filepath.Join(b.cfg.OutputDir, e.Name())
		p, err := readExportFile(file)
		if err != nil {
			b.log.WriteLog("memory:Init", fmt.Sprintf("Skipping %s: %v", file, err), "WARN")
			continue
		}
		b.idCounter++
		p.ID = b.idCounter
		b.paths[p.Name] = p
	}
	return nil
}

// Close writes every path to the output directory and removes the exports
// of deleted paths.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for name := range b.deleted {
		if err := b.removeExports(name); err != nil {
			return err
		}
	}
	b.deleted = make(map[string]struct{})

	for _, p := range b.paths {
		if err := b.removeExports(p.Name); err != nil {
			return err
		}
		if err := b.exportJSON(p); err != nil {
			return err
		}
	}
	return nil
}

// SavePath stores a copy of p, replacing any path of the same name
func (b *Backend) SavePath(p *core.Path) error {
	if p.Name == "" {
		return fmt.Errorf("camera path has no name")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	p.ID = b.idCounter
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	stored := *p
	stored.Poses = p.Poses.Clone()
	b.paths[p.Name] = &stored
	delete(b.deleted, p.Name)
	return nil
}

// GetPath returns a copy of the named path
func (b *Backend) GetPath(name string) (*core.Path, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, ok := b.paths[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrPathNotFound, name)
	}
	out := *p
	out.Poses = p.Poses.Clone()
	return &out, nil
}

// ListPaths summarizes every path ordered by name
func (b *Backend) ListPaths() ([]core.PathInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.PathInfo, 0, len(b.paths))
	for _, p := range b.paths {
		out = append(out, p.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeletePath removes the named path
func (b *Backend) DeletePath(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.paths[name]; !ok {
		return fmt.Errorf("%w: %s", core.ErrPathNotFound, name)
	}
	delete(b.paths, name)
	b.deleted[name] = struct{}{}
	return nil
}

// ExportFile returns where Close writes the named path.
func (b *Backend) ExportFile(name string) string {
	return filepath.Join(b.cfg.OutputDir, exportFileName(name, b.cfg.CompressOutput))
}

func (b *Backend) removeExports(name string) error {
	for _, compressed := range []bool{true, false} {
		file := filepath.Join(b.cfg.OutputDir, exportFileName(name, compressed))
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", file, err)
		}
	}
	return nil
}

func isExportFile(name string) bool {
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}
