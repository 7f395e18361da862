package rmsd

import (
	"fmt"
	"math"
	"strings"

	"github.com/TuftsBCB/structure"
	"gonum.org/v1/gonum/mat"
)

const (
	// Tolerance is the sum of absolute axis corrections (in radians) of a
	// full sweep below which the alternating solver stops.
	Tolerance = 0.001

	// MaxSweeps bounds the alternating solver.
	MaxSweeps = 1000
)

// Fit describes the rigid transformation that best maps a moving point set
// onto a reference point set: translate by -From, rotate, translate by To.
type Fit struct {
	rot matrix3

	// From is the centroid of the moving set, To is the centroid of the
	// reference set.
	From, To structure.Coords

	// RMSD is the root mean square deviation of the fitted sets.
	RMSD float64

	// Sweeps is the number of x/y/z passes the alternating solver made.
	// It is always 0 for the SVD solver.
	Sweeps int

	// Converged is false when the alternating solver hit MaxSweeps.
	Converged bool

	// Degenerate is set when the input sets were empty or of different
	// lengths. The transform is then the identity.
	Degenerate bool
}

// Rotation returns the fitted rotation matrix in row-major order.
func (f Fit) Rotation() [9]float64 {
	return f.rot
}

// Apply maps a single point with the fitted transformation.
func (f Fit) Apply(p structure.Coords) structure.Coords {
	q := f.rot.apply(structure.Coords{X: p.X - f.From.X, Y: p.Y - f.From.Y, Z: p.Z - f.From.Z})
	return structure.Coords{X: q.X + f.To.X, Y: q.Y + f.To.Y, Z: q.Z + f.To.Z}
}

// Transform maps every point in place.
func (f Fit) Transform(points []structure.Coords) {
	for i := range points {
		points[i] = f.Apply(points[i])
	}
}

// Superimpose fits moving onto reference with the alternating axis solver
// and maps every point of extra in place with the resulting transform.
// The reference and moving slices are not modified.
func Superimpose(reference, moving, extra []structure.Coords) Fit {
	fit, ref, mov, ok := prepare(reference, moving)
	if !ok {
		return fit
	}

	u := covariance(ref, mov)
	s := identity3
	for fit.Sweeps < MaxSweeps {
		fit.Sweeps++

		alpha := solveAxis(u[7]-u[5], u[4]+u[8])
		a := axisRotation(0, alpha)
		u, s = u.mult(a.transpose()), a.mult(s)

		beta := solveAxis(u[2]-u[6], u[0]+u[8])
		b := axisRotation(1, beta)
		u, s = u.mult(b.transpose()), b.mult(s)

		gamma := solveAxis(u[3]-u[1], u[0]+u[4])
		g := axisRotation(2, gamma)
		u, s = u.mult(g.transpose()), g.mult(s)

		if math.Abs(alpha)+math.Abs(beta)+math.Abs(gamma) <= Tolerance {
			fit.Converged = true
			break
		}
	}
	return finish(fit, s, reference, moving, extra)
}

// solveAxis returns the single axis rotation angle that maximizes the
// alignment term cos(a)*den + sin(a)*d.
func solveAxis(d, den float64) float64 {
	var a float64
	if d != 0 {
		// d/0 is +-Inf, and atan(+-Inf) is +-pi/2.
		a = math.Atan(d / den)
	}
	if math.Cos(a)*den+math.Sin(a)*d < 0 {
		a += math.Pi
	}
	return a
}

// SuperimposeSVD is like Superimpose, but finds the optimal rotation in
// closed form.
//
// Build the covariance matrix H of the centered moving (rows) and reference
// (columns) sets, compute its SVD H = U S V^T, compute d = sign(det(V U^T))
// and the optimal rotation R = V diag(1, 1, d) U^T.
func SuperimposeSVD(reference, moving, extra []structure.Coords) Fit {
	fit, ref, mov, ok := prepare(reference, moving)
	if !ok {
		return fit
	}
	fit.Converged = true

	// covariance(mov, ref) is the transpose of the alternating solver's u.
	h := covariance(mov, ref)
	var svd mat.SVD
	if !svd.Factorize(mat.NewDense(3, 3, h[:]), mat.SVDFull) {
		fit.Degenerate = true
		return finish(fit, identity3, reference, moving, extra)
	}
	var U, V mat.Dense
	svd.UTo(&U)
	svd.VTo(&V)
	u, v := dense3(&U), dense3(&V)

	ut := u.transpose()
	if v.mult(ut).det() < 0 {
		adjust := matrix3{
			1, 0, 0,
			0, 1, 0,
			0, 0, -1,
		}
		v = v.mult(adjust)
	}
	return finish(fit, v.mult(ut), reference, moving, extra)
}

func dense3(m *mat.Dense) matrix3 {
	var a matrix3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			a[r*3+c] = m.At(r, c)
		}
	}
	return a
}

// prepare computes centroids and centered copies of both sets. ok is false
// when the input is degenerate, in which case fit is already final.
func prepare(
	reference, moving []structure.Coords,
) (fit Fit, ref, mov []structure.Coords, ok bool) {
	fit.rot = identity3
	if len(reference) == 0 || len(reference) != len(moving) {
		fit.Degenerate = true
		return fit, nil, nil, false
	}
	fit.To, fit.From = centroid(reference), centroid(moving)
	return fit, center(reference, fit.To), center(moving, fit.From), true
}

func finish(
	fit Fit,
	rot matrix3,
	reference, moving, extra []structure.Coords,
) Fit {
	fit.rot = rot
	var sum float64
	for i := range moving {
		p := fit.Apply(moving[i])
		dx, dy, dz := p.X-reference[i].X, p.Y-reference[i].Y, p.Z-reference[i].Z
		sum += dx*dx + dy*dy + dz*dz
	}
	fit.RMSD = math.Sqrt(sum / float64(len(moving)))
	fit.Transform(extra)
	return fit
}

// RMSD returns the minimal root mean square deviation between two point sets
// after optimal superposition.
//
// Note that RMSD will panic if the lengths of struct1 and struct2 differ.
func RMSD(struct1, struct2 []structure.Coords) float64 {
	if len(struct1) != len(struct2) {
		panic(fmt.Sprintf("Computing the RMSD of two structures require that "+
			"they have equal length. But the lengths of the two structures "+
			"provided are %d and %d.", len(struct1), len(struct2)))
	}
	return SuperimposeSVD(struct1, struct2, nil).RMSD
}

// Method selects a superposition solver.
type Method int

const (
	Alternating Method = iota
	SVD
)

// ParseMethod accepts "iterative" (or "alternating") and "svd".
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "iterative", "alternating":
		return Alternating, nil
	case "svd", "kabsch":
		return SVD, nil
	}
	return 0, fmt.Errorf("unknown superposition method '%s'", s)
}

func (m Method) String() string {
	switch m {
	case Alternating:
		return "iterative"
	case SVD:
		return "svd"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// Superimpose dispatches to the selected solver.
func (m Method) Superimpose(reference, moving, extra []structure.Coords) Fit {
	if m == SVD {
		return SuperimposeSVD(reference, moving, extra)
	}
	return Superimpose(reference, moving, extra)
}

// centroid calculates the average position of a set of atoms.
func centroid(atoms []structure.Coords) structure.Coords {
	var xs, ys, zs float64
	for _, atom := range atoms {
		xs += atom.X
		ys += atom.Y
		zs += atom.Z
	}
	n := float64(len(atoms))
	return structure.Coords{X: xs / n, Y: ys / n, Z: zs / n}
}

func center(atoms []structure.Coords, c structure.Coords) []structure.Coords {
	centered := make([]structure.Coords, len(atoms))
	for i, a := range atoms {
		centered[i] = structure.Coords{X: a.X - c.X, Y: a.Y - c.Y, Z: a.Z - c.Z}
	}
	return centered
}
