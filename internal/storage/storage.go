// Package storage defines the path library: named camera paths kept by a
// pluggable backend.
package storage

import "github.com/OCAP2/campath/pkg/core"

// ErrNotFound is returned by GetPath and DeletePath for unknown names.
var ErrNotFound = core.ErrPathNotFound

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// SavePath stores p under p.Name, replacing any path of the same name,
	// and assigns p.ID.
	SavePath(p *core.Path) error
	GetPath(name string) (*core.Path, error)
	ListPaths() ([]core.PathInfo, error)
	DeletePath(name string) error
}

// Flusher is an optional interface for backends that buffer writes.
type Flusher interface {
	Flush() error
}
