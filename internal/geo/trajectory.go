package geo

import (
	"fmt"

	"github.com/OCAP2/campath/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Trajectory builds a LineString ZM of camera positions, M being the pose index.
// Sequences with fewer than two poses have no trajectory. A dolly along Z or
// a camera turning in place still has one, so constructor validation is skipped.
func Trajectory(seq core.Sequence) (geom.LineString, bool) {
	if len(seq) < 2 {
		return geom.LineString{}, false
	}

	coords := make([]float64, 0, len(seq)*4)
	for i, p := range seq {
		coords = append(coords, p.Position[0], p.Position[1], p.Position[2], float64(i))
	}
	ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXYZM), geom.DisableAllValidations)
	if err != nil {
		return geom.LineString{}, false
	}
	return ls, true
}

// TrajectoryWKT returns the trajectory as WKT, or "" when there is none.
func TrajectoryWKT(seq core.Sequence) string {
	ls, ok := Trajectory(seq)
	if !ok {
		return ""
	}
	return ls.AsText()
}

// ParseTrajectoryWKT reads back the positions of a trajectory written by TrajectoryWKT.
func ParseTrajectoryWKT(wkt string) ([][3]float64, error) {
	g, err := geom.UnmarshalWKT(wkt, geom.DisableAllValidations)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trajectory: %w", err)
	}
	ls, ok := g.AsLineString()
	if !ok {
		return nil, fmt.Errorf("trajectory is %s, not a LineString", g.Type())
	}

	seq := ls.Coordinates()
	out := make([][3]float64, seq.Length())
	for i := range out {
		c := seq.Get(i)
		out[i] = [3]float64{c.X, c.Y, c.Z}
	}
	return out, nil
}
