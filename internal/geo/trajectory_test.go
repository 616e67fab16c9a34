package geo

import (
	"testing"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrajectory_TooShort(t *testing.T) {
	_, ok := Trajectory(nil)
	assert.False(t, ok)

	assert.Empty(t, TrajectoryWKT(core.Sequence{core.NewPose(mgl64.Vec3{}, 1, 1)}))
}

func TestTrajectoryWKTRoundTrip(t *testing.T) {
	seq := core.Sequence{
		core.NewPose(mgl64.Vec3{0, 0, 0}, 1, 1),
		core.NewPose(mgl64.Vec3{1.5, 2, -3}, 1, 1),
		core.NewPose(mgl64.Vec3{4, 5, 6}, 1, 1),
	}

	ls, ok := Trajectory(seq)
	require.True(t, ok)
	assert.Equal(t, 3, ls.Coordinates().Length())

	wkt := TrajectoryWKT(seq)
	assert.Contains(t, wkt, "LINESTRING")

	pts, err := ParseTrajectoryWKT(wkt)
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, [3]float64{1.5, 2, -3}, pts[1])
}

func TestParseTrajectoryWKT_Invalid(t *testing.T) {
	_, err := ParseTrajectoryWKT("not wkt")
	assert.Error(t, err)

	_, err = ParseTrajectoryWKT("POINT(1 2)")
	assert.Error(t, err)
}

func TestTrajectory_DollyAlongViewAxis(t *testing.T) {
	seq := core.Sequence{
		core.NewPose(mgl64.Vec3{0, 0, 0}, 1, 1),
		core.NewPose(mgl64.Vec3{0, 0, -5}, 1, 1),
	}

	ls, ok := Trajectory(seq)
	require.True(t, ok)
	assert.Equal(t, 2, ls.Coordinates().Length())

	wkt := TrajectoryWKT(seq)
	assert.Equal(t, "LINESTRING ZM (0 0 0 0,0 0 -5 1)", wkt)

	pts, err := ParseTrajectoryWKT(wkt)
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{0, 0, 0}, {0, 0, -5}}, pts)
}

func TestTrajectory_TurningInPlace(t *testing.T) {
	turned := core.NewPose(mgl64.Vec3{1, 2, 3}, 1, 1)
	turned.Rotation = mgl64.QuatRotate(1, mgl64.Vec3{0, 1, 0})

	pts, err := ParseTrajectoryWKT(TrajectoryWKT(core.Sequence{core.NewPose(mgl64.Vec3{1, 2, 3}, 1, 1), turned}))
	require.NoError(t, err)
	assert.Equal(t, [][3]float64{{1, 2, 3}, {1, 2, 3}}, pts)
}
