// Package convert translates between core paths and their GORM models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/campath/internal/geo"
	"github.com/OCAP2/campath/internal/model"
	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"gorm.io/datatypes"
)

// PathToRecord builds the row set for p. IDs are left for the database.
func PathToRecord(p *core.Path) (model.PathRecord, error) {
	lo, hi := p.Poses.FovRange()
	meta := model.PathMetadata{FovMin: lo, FovMax: hi}
	if len(p.Poses) > 0 {
		meta.Aspect = p.Poses[0].Aspect
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return model.PathRecord{}, fmt.Errorf("failed to encode path metadata: %w", err)
	}

	rec := model.PathRecord{
		Name:       p.Name,
		Source:     p.Source,
		Width:      p.Width,
		Height:     p.Height,
		PoseCount:  len(p.Poses),
		Length:     p.Poses.Length(),
		Metadata:   datatypes.JSON(raw),
		Trajectory: geo.TrajectoryWKT(p.Poses),
		Poses:      make([]model.PoseRecord, len(p.Poses)),
	}
	if !p.CreatedAt.IsZero() {
		rec.CreatedAt = p.CreatedAt
	}
	for i, pose := range p.Poses {
		rec.Poses[i] = PoseToRecord(i, pose)
	}
	return rec, nil
}

// PoseToRecord flattens pose i of a path.
func PoseToRecord(i int, p core.Pose) model.PoseRecord {
	return model.PoseRecord{
		Seq:    i,
		PosX:   p.Position[0],
		PosY:   p.Position[1],
		PosZ:   p.Position[2],
		RotX:   p.Rotation.V[0],
		RotY:   p.Rotation.V[1],
		RotZ:   p.Rotation.V[2],
		RotW:   p.Rotation.W,
		FovY:   p.FovY,
		Aspect: p.Aspect,
		Near:   p.Near,
		Far:    p.Far,
	}
}

// RecordToPose is the inverse of PoseToRecord.
func RecordToPose(r model.PoseRecord) core.Pose {
	return core.Pose{
		Position: mgl64.Vec3{r.PosX, r.PosY, r.PosZ},
		Rotation: mgl64.Quat{W: r.RotW, V: mgl64.Vec3{r.RotX, r.RotY, r.RotZ}},
		FovY:     r.FovY,
		Aspect:   r.Aspect,
		Near:     r.Near,
		Far:      r.Far,
	}
}

// RecordToPath rebuilds a path. Poses must already be ordered by Seq.
func RecordToPath(r model.PathRecord) *core.Path {
	p := &core.Path{
		ID:        r.ID,
		Name:      r.Name,
		Source:    r.Source,
		Width:     r.Width,
		Height:    r.Height,
		CreatedAt: r.CreatedAt,
		Poses:     make(core.Sequence, len(r.Poses)),
	}
	for i, pr := range r.Poses {
		p.Poses[i] = RecordToPose(pr)
	}
	return p
}

// RecordToInfo summarizes a path row without loading its poses. The fov
// range comes from the metadata column, the end points from the trajectory.
func RecordToInfo(r model.PathRecord) (core.PathInfo, error) {
	info := core.PathInfo{
		ID:        r.ID,
		Name:      r.Name,
		Source:    r.Source,
		PoseCount: r.PoseCount,
		Length:    r.Length,
		CreatedAt: r.CreatedAt,
	}

	meta, err := Metadata(r)
	if err != nil {
		return info, err
	}
	info.FovMin, info.FovMax = meta.FovMin, meta.FovMax

	if r.Trajectory != "" {
		pts, err := geo.ParseTrajectoryWKT(r.Trajectory)
		if err != nil {
			return info, fmt.Errorf("path %q: %w", r.Name, err)
		}
		if n := len(pts); n > 0 {
			info.Start, info.End = mgl64.Vec3(pts[0]), mgl64.Vec3(pts[n-1])
		}
	}
	return info, nil
}

// Metadata decodes the metadata column.
func Metadata(r model.PathRecord) (model.PathMetadata, error) {
	var meta model.PathMetadata
	if len(r.Metadata) == 0 {
		return meta, nil
	}
	if err := json.Unmarshal(r.Metadata, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode path metadata: %w", err)
	}
	return meta, nil
}
