package caopt

import (
	"math"

	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
)

// Params are the force constants and targets of the Cα energy.
type Params struct {
	BondTarget      float64
	BondTolerance   float64
	CisProTarget    float64
	CisProTolerance float64

	BondK   float64
	AngleK  float64
	AnchorK float64
	ClashK  float64

	// AnchorRadius is how far a Cα may drift from its starting position
	// before the anchor term applies.
	AnchorRadius float64

	// ClashDistance is the closest two Cα more than two residues apart may
	// get before the clash term applies.
	ClashDistance float64

	// Pseudo bond angles outside [AngleMin, AngleMax] degrees are penalized.
	AngleMin, AngleMax float64

	MaxIterations int
}

// DefaultParams returns the standard PULCHRA Cα parameters.
func DefaultParams() Params {
	return Params{
		BondTarget:      3.8,
		BondTolerance:   0.1,
		CisProTarget:    2.9,
		CisProTolerance: 0.1,
		BondK:           10.0,
		AngleK:          20.0,
		AnchorK:         0.01,
		ClashK:          10.0,
		AnchorRadius:    3.0,
		ClashDistance:   3.5,
		AngleMin:        80,
		AngleMax:        150,
		MaxIterations:   100,
	}
}

// Energy is the Cα energy broken down by term.
type Energy struct {
	Bond, Angle, Anchor, Clash float64
}

// Total is the sum of all terms.
func (e Energy) Total() float64 {
	return e.Bond + e.Angle + e.Anchor + e.Clash
}

// system is one evaluation context: a trace, the positions it is anchored
// to and the per residue cis-proline flags.
type system struct {
	p       Params
	anchors []structure.Coords
	cisPro  []bool
}

func (s *system) bondTarget(i int) float64 {
	if i < len(s.cisPro) && s.cisPro[i] {
		return s.p.CisProTarget
	}
	return s.p.BondTarget
}

// energy evaluates the energy at x. When force is not nil, it must have the
// same length as x and receives -dE/dx.
func (s *system) energy(x, force []structure.Coords) Energy {
	var e Energy
	if force != nil {
		for i := range force {
			force[i] = structure.Coords{}
		}
	}
	n := len(x)
	for i := 0; i < n; i++ {
		if i < len(s.anchors) {
			e.Anchor += s.anchor(x, force, i)
		}
		if i > 0 {
			e.Bond += s.bond(x, force, i)
		}
		for j := 0; j < i-2; j++ {
			e.Clash += s.clash(x, force, i, j)
		}
		if i > 0 && i < n-1 {
			e.Angle += s.angle(x, force, i)
		}
	}
	return e
}

// pull adds f*(a-b) to force[i] and subtracts it from force[j]. A negative
// j only updates i.
func pull(force []structure.Coords, i, j int, f float64, d structure.Coords) {
	if force == nil {
		return
	}
	force[i] = geom.Add(force[i], geom.Scale(d, f))
	if j >= 0 {
		force[j] = geom.Sub(force[j], geom.Scale(d, f))
	}
}

func (s *system) anchor(x, force []structure.Coords, i int) float64 {
	d := geom.Sub(x[i], s.anchors[i])
	dist := geom.Norm(d)
	if dist <= s.p.AnchorRadius {
		return 0
	}
	dev := dist - s.p.AnchorRadius
	pull(force, i, -1, -2*s.p.AnchorK*dev/dist, d)
	return s.p.AnchorK * dev * dev
}

func (s *system) bond(x, force []structure.Coords, i int) float64 {
	d := geom.Sub(x[i], x[i-1])
	dist := geom.Norm(d)
	dev := dist - s.bondTarget(i)
	if dist > geom.Epsilon {
		pull(force, i, i-1, -2*s.p.BondK*dev/dist, d)
	}
	return s.p.BondK * dev * dev
}

func (s *system) clash(x, force []structure.Coords, i, j int) float64 {
	d := geom.Sub(x[i], x[j])
	dist2 := geom.Dot(d, d)
	limit := s.p.ClashDistance
	if dist2 >= limit*limit {
		return 0
	}
	dist := math.Sqrt(dist2)
	dev := limit - dist
	if dist > geom.Epsilon {
		pull(force, i, j, 2*s.p.ClashK*dev/dist, d)
	}
	return s.p.ClashK * dev * dev
}

func (s *system) angle(x, force []structure.Coords, i int) float64 {
	r12, r32 := geom.Sub(x[i-1], x[i]), geom.Sub(x[i+1], x[i])
	d12, d32 := geom.Norm(r12), geom.Norm(r32)
	if d12 < geom.Epsilon || d32 < geom.Epsilon {
		return 0
	}
	cos := geom.Dot(r12, r32) / (d12 * d32)
	cos = math.Max(-1, math.Min(1, cos))
	theta := math.Acos(cos)

	var diff float64
	switch lo, hi := geom.Radians(s.p.AngleMin), geom.Radians(s.p.AngleMax); {
	case theta < lo:
		diff = theta - lo
	case theta > hi:
		diff = theta - hi
	default:
		return 0
	}

	if force != nil {
		sin := math.Max(math.Sqrt(1-cos*cos), 1e-6)
		c := 2 * s.p.AngleK * diff / sin
		u12, u32 := geom.Scale(r12, 1/d12), geom.Scale(r32, 1/d32)
		f1 := geom.Scale(geom.Sub(u32, geom.Scale(u12, cos)), c/d12)
		f3 := geom.Scale(geom.Sub(u12, geom.Scale(u32, cos)), c/d32)
		force[i-1] = geom.Add(force[i-1], f1)
		force[i+1] = geom.Add(force[i+1], f3)
		force[i] = geom.Sub(force[i], geom.Add(f1, f3))
	}
	return s.p.AngleK * diff * diff
}
