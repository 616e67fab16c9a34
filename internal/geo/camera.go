package geo

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"
)

// CAMERA CONVENTIONS
// Canonical poses use OpenGL camera axes (look down -Z, +Y up) and store the
// camera-to-world rotation. Bundler shares those axes but stores world-to-camera.
// COLMAP stores world-to-camera with OpenCV axes (look down +Z, +Y down).

var (
	// ErrDegenerateLookAt is returned when eye, target and up do not span a frame.
	ErrDegenerateLookAt = errors.New("degenerate look-at frame")

	// ErrZeroQuaternion is returned for a quaternion with zero norm.
	ErrZeroQuaternion = errors.New("zero-length quaternion")
)

// flipYZ maps OpenCV camera axes to OpenGL camera axes and back.
var flipYZ = mgl64.Mat3{
	1, 0, 0,
	0, -1, 0,
	0, 0, -1,
}

// FocalFromFovY converts a vertical field of view (radians) to a focal length
// in pixels for an image of the given height.
func FocalFromFovY(fovY float64, height int) float64 {
	return float64(height) / (2 * math.Tan(fovY/2))
}

// FovYFromFocal converts a focal length in pixels to a vertical field of view.
func FovYFromFocal(focal float64, height int) float64 {
	return 2 * math.Atan(float64(height)/(2*focal))
}

// Aspect returns width/height, or 1 when height is not positive.
func Aspect(width, height int) float64 {
	if height <= 0 {
		return 1
	}
	return float64(width) / float64(height)
}

// QuatFromMat3 converts a rotation matrix to a unit quaternion.
func QuatFromMat3(m mgl64.Mat3) mgl64.Quat {
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize()
}

// LookAt builds the camera-to-world rotation of a camera at eye looking at
// target with the given up hint.
func LookAt(eye, target, up mgl64.Vec3) (mgl64.Quat, error) {
	dir := target.Sub(eye)
	if dir.Len() < 1e-12 {
		return mgl64.Quat{}, ErrDegenerateLookAt
	}
	f := dir.Normalize()
	r := f.Cross(up)
	if r.Len() < 1e-12 {
		return mgl64.Quat{}, ErrDegenerateLookAt
	}
	r = r.Normalize()
	u := r.Cross(f)

	return QuatFromMat3(mgl64.Mat3FromCols(r, u, f.Mul(-1))), nil
}

// FromBundler converts a Bundler world-to-camera rotation and translation to a
// canonical position and camera-to-world rotation.
func FromBundler(r mgl64.Mat3, t mgl64.Vec3) (mgl64.Vec3, mgl64.Quat) {
	c2w := r.Transpose()
	return c2w.Mul3x1(t).Mul(-1), QuatFromMat3(c2w)
}

// ToBundler converts a canonical pose to a Bundler world-to-camera rotation
// and translation.
func ToBundler(position mgl64.Vec3, rotation mgl64.Quat) (mgl64.Mat3, mgl64.Vec3) {
	w2c := rotation.Normalize().Mat4().Mat3().Transpose()
	return w2c, w2c.Mul3x1(position).Mul(-1)
}

// FromColmap converts a COLMAP world-to-camera quaternion and translation to a
// canonical position and camera-to-world rotation.
func FromColmap(q quat.Number, t mgl64.Vec3) (mgl64.Vec3, mgl64.Quat, error) {
	w2c, err := QuatFromNumber(q)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Quat{}, err
	}
	c2wCV := w2c.Mat4().Mat3().Transpose()
	position := c2wCV.Mul3x1(t).Mul(-1)
	return position, QuatFromMat3(c2wCV.Mul3(flipYZ)), nil
}

// ToColmap converts a canonical pose to a COLMAP world-to-camera quaternion
// and translation. The quaternion is returned with a non-negative real part.
func ToColmap(position mgl64.Vec3, rotation mgl64.Quat) (quat.Number, mgl64.Vec3) {
	c2wCV := rotation.Normalize().Mat4().Mat3().Mul3(flipYZ)
	w2c := c2wCV.Transpose()
	q := NumberFromQuat(QuatFromMat3(w2c))
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q, w2c.Mul3x1(position).Mul(-1)
}

// QuatFromNumber normalizes a gonum quaternion into an mgl64 rotation.
func QuatFromNumber(q quat.Number) (mgl64.Quat, error) {
	n := quat.Abs(q)
	if n < 1e-12 || math.IsNaN(n) {
		return mgl64.Quat{}, ErrZeroQuaternion
	}
	q = quat.Scale(1/n, q)
	return mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}, nil
}

// NumberFromQuat converts an mgl64 rotation to a gonum quaternion.
func NumberFromQuat(q mgl64.Quat) quat.Number {
	return quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]}
}
