// Package kinematics resolves the world placement of posed entities. Every Pose is expressed in
// the frame of another posed entity or in the world frame. Joints sit between two links and add
// their own motion to the link they drive. Propagate walks the resulting frame tree once per tick
// from the world-relative roots down to the leaves.
package kinematics

import (
	"math"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid motion: rotate first, then translate.
type Transform struct {
	Translation r3.Vec
	Rotation    r3.Rotation
}

// Identity returns the transform that leaves every point in place.
func Identity() Transform {
	return Transform{Rotation: r3.Rotation(quat.Number{Real: 1})}
}

// Translation returns a transform that only moves points by v.
func Translation(v r3.Vec) Transform {
	t := Identity()
	t.Translation = v
	return t
}

// AxisAngle returns a transform that rotates by angle radians about axis. A zero axis yields the
// identity.
func AxisAngle(axis r3.Vec, angle float64) Transform {
	if r3.Norm(axis) == 0 || angle == 0 {
		return Identity()
	}
	return Transform{Rotation: r3.NewRotation(angle, r3.Unit(axis))}
}

// NewTransform builds a transform from a translation and a rotation of angle radians about axis.
func NewTransform(translation r3.Vec, axis r3.Vec, angle float64) Transform {
	t := AxisAngle(axis, angle)
	t.Translation = translation
	return t
}

// FromXYZRPY builds a transform from a translation and fixed-axis roll, pitch and yaw angles, the
// convention robot description files use: R = Rz(yaw)·Ry(pitch)·Rx(roll).
func FromXYZRPY(xyz r3.Vec, roll, pitch, yaw float64) Transform {
	r := AxisAngle(r3.Vec{Z: 1}, yaw).
		Compose(AxisAngle(r3.Vec{Y: 1}, pitch)).
		Compose(AxisAngle(r3.Vec{X: 1}, roll))
	r.Translation = xyz
	return r
}

// rotation treats the zero quaternion as no rotation so that Transform{} is usable.
func (t Transform) rotation() quat.Number {
	q := quat.Number(t.Rotation)
	if q == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return q
}

// Apply maps v through the transform: R·v + t, using the rotation's 3×3 matrix.
func (t Transform) Apply(v r3.Vec) r3.Vec {
	m := r3.Rotation(t.rotation()).Mat()
	return r3.Add(m.MulVec(v), t.Translation)
}

// Compose returns t ∘ other, the transform that applies other first and t second.
func (t Transform) Compose(other Transform) Transform {
	return Transform{
		Translation: t.Apply(other.Translation),
		Rotation:    r3.Rotation(normalize(quat.Mul(t.rotation(), other.rotation()))),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := r3.Rotation(quat.Conj(t.rotation()))
	return Transform{
		Translation: r3.Scale(-1, inv.Mat().MulVec(t.Translation)),
		Rotation:    inv,
	}
}

// ApproxEqual compares two transforms component-wise within tol. Rotations q and -q are the same.
func (t Transform) ApproxEqual(other Transform, tol float64) bool {
	if r3.Norm(r3.Sub(t.Translation, other.Translation)) > tol {
		return false
	}
	a, b := t.rotation(), other.rotation()
	return quatClose(a, b, tol) || quatClose(a, quat.Scale(-1, b), tol)
}

func quatClose(a, b quat.Number, tol float64) bool {
	return quat.Abs(quat.Sub(a, b)) <= tol
}

// normalize keeps long composition chains from drifting off the unit sphere.
func normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 || math.Abs(n-1) < 1e-12 {
		return q
	}
	return quat.Scale(1/n, q)
}

type transformJSON struct {
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"` // w, x, y, z
}

func (t Transform) MarshalJSON() ([]byte, error) {
	q := t.rotation()
	return json.Marshal(transformJSON{
		Translation: [3]float64{t.Translation.X, t.Translation.Y, t.Translation.Z},
		Rotation:    [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag},
	})
}

func (t *Transform) UnmarshalJSON(data []byte) error {
	var raw transformJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "invalid transform")
	}
	t.Translation = r3.Vec{X: raw.Translation[0], Y: raw.Translation[1], Z: raw.Translation[2]}
	t.Rotation = r3.Rotation(normalize(quat.Number{
		Real: raw.Rotation[0], Imag: raw.Rotation[1], Jmag: raw.Rotation[2], Kmag: raw.Rotation[3],
	}))
	return nil
}
