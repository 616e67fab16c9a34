// pkg/core/path.go
package core

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Source formats a path can originate from.
const (
	SourceRecorded = "recorded"
	SourceNative   = "bytes"
	SourceBundle   = "bundle"
	SourceColmap   = "colmap"
	SourceLookAt   = "lookat"
)

// ErrPathNotFound is returned when the path library has no path of that name.
var ErrPathNotFound = errors.New("camera path not found")

// Path is a named pose sequence kept in the path library.
type Path struct {
	ID        uint
	Name      string
	Source    string
	Width     int
	Height    int
	CreatedAt time.Time
	Poses     Sequence
}

// PathInfo summarises a stored path without its poses. Start and End are
// only set for paths of two or more poses.
type PathInfo struct {
	ID        uint
	Name      string
	Source    string
	PoseCount int
	Length    float64
	FovMin    float64
	FovMax    float64
	Start     mgl64.Vec3
	End       mgl64.Vec3
	CreatedAt time.Time
}

// Info builds the summary for p.
func (p *Path) Info() PathInfo {
	info := PathInfo{
		ID:        p.ID,
		Name:      p.Name,
		Source:    p.Source,
		PoseCount: len(p.Poses),
		Length:    p.Poses.Length(),
		CreatedAt: p.CreatedAt,
	}
	info.FovMin, info.FovMax = p.Poses.FovRange()
	if n := len(p.Poses); n >= 2 {
		info.Start, info.End = p.Poses[0].Position, p.Poses[n-1].Position
	}
	return info
}
