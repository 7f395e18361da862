package rmsd

import (
	"math"

	"github.com/TuftsBCB/structure"
)

// Represents a 3x3 matrix, in row-major order
// | 0 1 2 |
// | 3 4 5 |
// | 6 7 8 |
type matrix3 [9]float64

var identity3 = matrix3{
	1, 0, 0,
	0, 1, 0,
	0, 0, 1,
}

func (a matrix3) mult(b matrix3) matrix3 {
	return matrix3{
		a[0]*b[0] + a[1]*b[3] + a[2]*b[6],
		a[0]*b[1] + a[1]*b[4] + a[2]*b[7],
		a[0]*b[2] + a[1]*b[5] + a[2]*b[8],

		a[3]*b[0] + a[4]*b[3] + a[5]*b[6],
		a[3]*b[1] + a[4]*b[4] + a[5]*b[7],
		a[3]*b[2] + a[4]*b[5] + a[5]*b[8],

		a[6]*b[0] + a[7]*b[3] + a[8]*b[6],
		a[6]*b[1] + a[7]*b[4] + a[8]*b[7],
		a[6]*b[2] + a[7]*b[5] + a[8]*b[8],
	}
}

func (a matrix3) transpose() matrix3 {
	return matrix3{
		a[0], a[3], a[6],
		a[1], a[4], a[7],
		a[2], a[5], a[8],
	}
}

func (a matrix3) det() float64 {
	// 048 + 156 + 237 - 246 - 138 - 057
	return a[0]*a[4]*a[8] +
		a[1]*a[5]*a[6] +
		a[2]*a[3]*a[7] -
		a[2]*a[4]*a[6] -
		a[1]*a[3]*a[8] -
		a[0]*a[5]*a[7]
}

// apply returns a*p, treating p as a column vector.
func (a matrix3) apply(p structure.Coords) structure.Coords {
	return structure.Coords{
		X: a[0]*p.X + a[1]*p.Y + a[2]*p.Z,
		Y: a[3]*p.X + a[4]*p.Y + a[5]*p.Z,
		Z: a[6]*p.X + a[7]*p.Y + a[8]*p.Z,
	}
}

// covariance computes the 3x3 matrix u[a][b] = sum_i ref_i[a] * mov_i[b].
// Both sets must already be centered.
func covariance(ref, mov []structure.Coords) matrix3 {
	var u matrix3
	for i := range ref {
		r, m := ref[i], mov[i]
		u[0] += r.X * m.X
		u[1] += r.X * m.Y
		u[2] += r.X * m.Z
		u[3] += r.Y * m.X
		u[4] += r.Y * m.Y
		u[5] += r.Y * m.Z
		u[6] += r.Z * m.X
		u[7] += r.Z * m.Y
		u[8] += r.Z * m.Z
	}
	return u
}

// axisRotation returns the rotation by angle radians about the x (0), y (1)
// or z (2) axis.
func axisRotation(axis int, angle float64) matrix3 {
	cos, sin := math.Cos(angle), math.Sin(angle)
	r := identity3
	switch axis {
	case 0:
		r[4], r[8] = cos, cos
		r[7], r[5] = sin, -sin
	case 1:
		r[0], r[8] = cos, cos
		r[2], r[6] = sin, -sin
	case 2:
		r[0], r[4] = cos, cos
		r[3], r[1] = sin, -sin
	}
	return r
}
