package kernel

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// degenerateLength is the length below which a direction vector is treated
// as zero when building frames.
const degenerateLength = 1e-12

// Frame is a right-handed orthonormal coordinate system.
type Frame struct {
	Origin v3.Vec `json:"origin"`
	X      v3.Vec `json:"x"`
	Y      v3.Vec `json:"y"`
	Z      v3.Vec `json:"z"`
}

// WorldXY returns the canonical world frame.
func WorldXY() Frame {
	return Frame{
		X: v3.Vec{X: 1},
		Y: v3.Vec{Y: 1},
		Z: v3.Vec{Z: 1},
	}
}

// NewFrame returns a frame at origin whose Z axis is along z. The X axis is
// chosen perpendicular to z from the world axis least aligned with it.
func NewFrame(origin, z v3.Vec) Frame {
	return NewFrameZX(origin, z, leastAligned(z))
}

// NewFrameZX returns a frame at origin with Z along z and X as close to
// xHint as orthogonality allows.
func NewFrameZX(origin, z, xHint v3.Vec) Frame {
	if z.Length() < degenerateLength {
		z = v3.Vec{Z: 1}
	}
	z = z.Normalize()
	x := xHint.Sub(z.MulScalar(xHint.Dot(z)))
	if x.Length() < degenerateLength {
		x = leastAligned(z)
		x = x.Sub(z.MulScalar(x.Dot(z)))
	}
	x = x.Normalize()
	return Frame{Origin: origin, X: x, Y: z.Cross(x), Z: z}
}

// FrameFromAxes builds the plane through origin spanned by xDir and yDir.
// yDir only has to be non-parallel to xDir; it is orthogonalized.
func FrameFromAxes(origin, xDir, yDir v3.Vec) (Frame, bool) {
	z := xDir.Cross(yDir)
	if xDir.Length() < degenerateLength || z.Length() < degenerateLength {
		return Frame{}, false
	}
	x := xDir.Normalize()
	z = z.Normalize()
	return Frame{Origin: origin, X: x, Y: z.Cross(x), Z: z}, true
}

// leastAligned returns the world axis with the smallest component along v.
func leastAligned(v v3.Vec) v3.Vec {
	a := v.Abs()
	switch {
	case a.X <= a.Y && a.X <= a.Z:
		return v3.Vec{X: 1}
	case a.Y <= a.Z:
		return v3.Vec{Y: 1}
	default:
		return v3.Vec{Z: 1}
	}
}

// ToWorld maps local frame coordinates to world coordinates.
func (f Frame) ToWorld(local v3.Vec) v3.Vec {
	return f.Origin.
		Add(f.X.MulScalar(local.X)).
		Add(f.Y.MulScalar(local.Y)).
		Add(f.Z.MulScalar(local.Z))
}

// ToLocal maps a world point into frame coordinates.
func (f Frame) ToLocal(p v3.Vec) v3.Vec {
	d := p.Sub(f.Origin)
	return v3.Vec{X: d.Dot(f.X), Y: d.Dot(f.Y), Z: d.Dot(f.Z)}
}

// IsValid reports whether the axes are unit length and mutually orthogonal.
func (f Frame) IsValid() bool {
	const tol = 1e-9
	unit := func(v v3.Vec) bool { return math.Abs(v.Length()-1) < tol }
	return unit(f.X) && unit(f.Y) && unit(f.Z) &&
		math.Abs(f.X.Dot(f.Y)) < tol &&
		math.Abs(f.Y.Dot(f.Z)) < tol &&
		math.Abs(f.Z.Dot(f.X)) < tol
}

// Transform returns the rigid transform carrying the world XY frame onto f.
// It is composed as translate * spin * tilt: tilt takes world Z onto f.Z,
// spin turns the tilted X axis about f.Z onto f.X.
func (f Frame) Transform() sdf.M44 {
	worldZ := v3.Vec{Z: 1}
	tilt := sdf.Identity3d()
	axis := worldZ.Cross(f.Z)
	switch {
	case axis.Length() > degenerateLength:
		tilt = sdf.Rotate3d(axis.Normalize(), AngleBetween(worldZ, f.Z))
	case f.Z.Z < 0:
		tilt = sdf.RotateX(math.Pi)
	}
	tiltedX := tilt.MulPosition(v3.Vec{X: 1})
	spin := sdf.Rotate3d(f.Z, SignedAngle(tiltedX, f.X, f.Z))
	return sdf.Translate3d(f.Origin).Mul(spin).Mul(tilt)
}

// AngleBetween returns the unsigned angle between a and b in [0, pi].
func AngleBetween(a, b v3.Vec) float64 {
	return math.Atan2(a.Cross(b).Length(), a.Dot(b))
}

// SignedAngle returns the angle turning a onto b measured about n using the
// right hand rule, in (-pi, pi].
func SignedAngle(a, b, n v3.Vec) float64 {
	return math.Atan2(a.Cross(b).Dot(n), a.Dot(b))
}
