/*
Package geom provides the small amount of three dimensional vector algebra
needed to rebuild protein backbones: distances, cross products, bond and
dihedral angles, the signed Cα "chirality" distance, rotation about an
arbitrary axis and internal-coordinate (NeRF) atom placement.

All functions operate on structure.Coords values and never panic. Where a
geometric quantity is undefined (a zero length axis, collinear atoms), the
result is tagged with a boolean rather than silently returning garbage.
*/
package geom

import (
	"math"

	"github.com/TuftsBCB/structure"
)

// Epsilon is the length below which a vector is considered degenerate.
const Epsilon = 1e-10

// NoDihedral is the value returned alongside ok == false by Dihedral.
const NoDihedral = 360.0

func Add(a, b structure.Coords) structure.Coords {
	return structure.Coords{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z}
}

func Sub(a, b structure.Coords) structure.Coords {
	return structure.Coords{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z}
}

func Scale(a structure.Coords, s float64) structure.Coords {
	return structure.Coords{X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

func Dot(a, b structure.Coords) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func Cross(a, b structure.Coords) structure.Coords {
	return structure.Coords{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func Norm(a structure.Coords) float64 {
	return math.Sqrt(Dot(a, a))
}

// Unit returns a scaled to length 1. If a is (nearly) the zero vector, ok is
// false and the zero vector is returned.
func Unit(a structure.Coords) (u structure.Coords, ok bool) {
	n := Norm(a)
	if n < Epsilon {
		return structure.Coords{}, false
	}
	return Scale(a, 1/n), true
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b structure.Coords) float64 {
	return math.Sqrt(Distance2(a, b))
}

// Distance2 returns the squared distance between two points.
func Distance2(a, b structure.Coords) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return dx*dx + dy*dy + dz*dz
}

// Angle returns the angle a-b-c in degrees. Degenerate input yields 0.
func Angle(a, b, c structure.Coords) float64 {
	u, ok1 := Unit(Sub(a, b))
	v, ok2 := Unit(Sub(c, b))
	if !ok1 || !ok2 {
		return 0
	}
	return Degrees(math.Acos(clamp(Dot(u, v), -1, 1)))
}

// Dihedral returns the torsion angle a-b-c-d in degrees, in (-180, 180].
// When any of the supporting vectors or planes is degenerate, it returns
// (NoDihedral, false).
func Dihedral(a, b, c, d structure.Coords) (float64, bool) {
	b1, b2, b3 := Sub(b, a), Sub(c, b), Sub(d, c)
	n1, n2 := Cross(b1, b2), Cross(b2, b3)
	lb2 := Norm(b2)
	if lb2 < Epsilon || Norm(n1) < Epsilon || Norm(n2) < Epsilon {
		return NoDihedral, false
	}
	x := Dot(n1, n2)
	y := lb2 * Dot(b1, n2)
	return Degrees(math.Atan2(y, x)), true
}

// Chirality returns the distance between the first and last point of a
// four point chain, negated when the chain is left handed (the scalar
// triple product of the three connecting vectors is negative).
func Chirality(a, b, c, d structure.Coords) float64 {
	r := Distance(a, d)
	v1, v2, v3 := Sub(b, a), Sub(c, b), Sub(d, c)
	if Dot(Cross(v1, v2), v3) < 0 {
		return -r
	}
	return r
}

// RotateAbout rotates p by angle radians around the axis that passes through
// origin in the direction of axis, using Rodrigues' formula. A zero length
// axis leaves p unchanged.
func RotateAbout(
	p, origin, axis structure.Coords,
	angle float64,
) structure.Coords {
	k, ok := Unit(axis)
	if !ok {
		return p
	}
	v := Sub(p, origin)
	cos, sin := math.Cos(angle), math.Sin(angle)
	r := Add(Scale(v, cos), Scale(Cross(k, v), sin))
	r = Add(r, Scale(k, Dot(k, v)*(1-cos)))
	return Add(r, origin)
}

// Place returns the position of a fourth atom d bonded to c such that
// |cd| = bond, the angle b-c-d equals angle and the dihedral a-b-c-d equals
// torsion. Angles are in degrees. If a, b and c are collinear, an arbitrary
// but deterministic reference plane is used.
func Place(a, b, c structure.Coords, bond, angle, torsion float64) structure.Coords {
	bc, ok := Unit(Sub(c, b))
	if !ok {
		bc = structure.Coords{X: 1}
	}
	n, ok := Unit(Cross(Sub(b, a), bc))
	if !ok {
		n = Perpendicular(bc)
	}
	m := Cross(n, bc)

	th, ph := Radians(angle), Radians(torsion)
	dx := -bond * math.Cos(th)
	dy := bond * math.Sin(th) * math.Cos(ph)
	dz := bond * math.Sin(th) * math.Sin(ph)
	d := Add(Scale(bc, dx), Add(Scale(m, dy), Scale(n, dz)))
	return Add(c, d)
}

// Perpendicular returns some unit vector perpendicular to v. The choice is
// deterministic. A zero vector yields the z axis.
func Perpendicular(v structure.Coords) structure.Coords {
	ref := structure.Coords{X: 1}
	if math.Abs(v.X) > math.Abs(v.Y) && math.Abs(v.X) > math.Abs(v.Z) {
		ref = structure.Coords{Y: 1}
	}
	if p, ok := Unit(Cross(v, ref)); ok {
		return p
	}
	return structure.Coords{Z: 1}
}

// Centroid returns the average position of a set of points.
func Centroid(points []structure.Coords) structure.Coords {
	var c structure.Coords
	if len(points) == 0 {
		return c
	}
	for _, p := range points {
		c = Add(c, p)
	}
	return Scale(c, 1/float64(len(points)))
}

// Finite reports whether every component of p is a finite number.
func Finite(p structure.Coords) bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180 }

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
