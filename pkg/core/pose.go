// pkg/core/pose.go
package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Clip plane defaults used when a source format carries no near/far values.
const (
	DefaultNear = 0.01
	DefaultFar  = 1000.0
)

// Pose is one camera sample in the canonical convention: right-handed world,
// camera looking down its local -Z axis with +Y up. Rotation maps camera axes
// to world axes.
type Pose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	FovY     float64 // vertical field of view, radians
	Aspect   float64 // width / height
	Near     float64
	Far      float64
}

// NewPose returns a pose with identity rotation and default clip planes.
func NewPose(position mgl64.Vec3, fovY, aspect float64) Pose {
	return Pose{
		Position: position,
		Rotation: mgl64.QuatIdent(),
		FovY:     fovY,
		Aspect:   aspect,
		Near:     DefaultNear,
		Far:      DefaultFar,
	}
}

// Forward is the world-space viewing direction.
func (p Pose) Forward() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{0, 0, -1})
}

// Up is the world-space up direction of the image plane.
func (p Pose) Up() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{0, 1, 0})
}

// Right is the world-space right direction of the image plane.
func (p Pose) Right() mgl64.Vec3 {
	return p.Rotation.Rotate(mgl64.Vec3{1, 0, 0})
}

// CameraToWorld returns the rotation as a 3x3 matrix.
func (p Pose) CameraToWorld() mgl64.Mat3 {
	return p.Rotation.Normalize().Mat4().Mat3()
}

// WorldToCamera returns the inverse rotation as a 3x3 matrix.
func (p Pose) WorldToCamera() mgl64.Mat3 {
	return p.CameraToWorld().Transpose()
}

// WithDefaults fills zero clip planes with DefaultNear / DefaultFar.
func (p Pose) WithDefaults() Pose {
	if p.Near <= 0 {
		p.Near = DefaultNear
	}
	if p.Far <= 0 {
		p.Far = DefaultFar
	}
	return p
}

// ApproxEqual compares all fields within eps. Rotations q and -q are equal.
func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	if !p.Position.ApproxEqualThreshold(o.Position, eps) {
		return false
	}
	if math.Abs(math.Abs(p.Rotation.Dot(o.Rotation))-1) > eps {
		return false
	}
	return math.Abs(p.FovY-o.FovY) <= eps &&
		math.Abs(p.Aspect-o.Aspect) <= eps &&
		math.Abs(p.Near-o.Near) <= eps &&
		math.Abs(p.Far-o.Far) <= eps
}

// Interpolate blends a toward b by t in [0,1]: position and projection
// parameters linearly, rotation along the shortest arc.
func Interpolate(a, b Pose, t float64) Pose {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}

	qa, qb := a.Rotation, b.Rotation
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}

	return Pose{
		Position: a.Position.Add(b.Position.Sub(a.Position).Mul(t)),
		Rotation: mgl64.QuatSlerp(qa, qb, t).Normalize(),
		FovY:     lerp(a.FovY, b.FovY, t),
		Aspect:   lerp(a.Aspect, b.Aspect, t),
		Near:     lerp(a.Near, b.Near, t),
		Far:      lerp(a.Far, b.Far, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Sequence is an ordered list of poses; index order is playback order.
type Sequence []Pose

// Clone returns an independent copy. A nil sequence clones to an empty one.
func (s Sequence) Clone() Sequence {
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Length returns the summed distance between consecutive positions.
func (s Sequence) Length() float64 {
	var total float64
	for i := 1; i < len(s); i++ {
		total += s[i].Position.Sub(s[i-1].Position).Len()
	}
	return total
}

// FovRange returns the smallest and largest vertical field of view.
// Both are zero for an empty sequence.
func (s Sequence) FovRange() (lo, hi float64) {
	for i, p := range s {
		if i == 0 || p.FovY < lo {
			lo = p.FovY
		}
		if i == 0 || p.FovY > hi {
			hi = p.FovY
		}
	}
	return lo, hi
}

// Every returns every step-th pose starting at the first. step < 1 is treated as 1.
func (s Sequence) Every(step int) Sequence {
	if step < 1 {
		step = 1
	}
	out := make(Sequence, 0, (len(s)+step-1)/step)
	for i := 0; i < len(s); i += step {
		out = append(out, s[i])
	}
	return out
}
