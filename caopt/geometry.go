package caopt

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
)

// cisProWindow is how many tolerances away from the cis-proline target a
// Cα-Cα distance may be and still be taken as a cis peptide bond.
const cisProWindow = 5

// DetectCisProlines flags every proline whose Cα sits unusually close to
// the preceding Cα as a cis-proline. It sets Residue.CisPro and returns the
// flags by residue index. It should run once, before optimization.
func DetectCisProlines(c *chain.Chain, trace []structure.Coords, p Params) []bool {
	cis := make([]bool, len(trace))
	lo := p.CisProTarget - cisProWindow*p.CisProTolerance
	hi := p.CisProTarget + cisProWindow*p.CisProTolerance
	for i := 1; i < len(trace) && i < c.Len(); i++ {
		r := &c.Residues[i]
		d := geom.Distance(trace[i], trace[i-1])
		if r.IsProline() && d > lo && d < hi {
			cis[i] = true
		}
		r.CisPro = cis[i]
	}
	return cis
}

// RandomWalk replaces trace with a random chain of Cα-Cα steps of the given
// length that starts at the origin.
func RandomWalk(trace []structure.Coords, bond float64, rng *rand.Rand) {
	if len(trace) == 0 {
		return
	}
	trace[0] = structure.Coords{}
	for i := 1; i < len(trace); i++ {
		var d structure.Coords
		ok := false
		for !ok {
			d = structure.Coords{
				X: 2*rng.Float64() - 1,
				Y: 2*rng.Float64() - 1,
				Z: 2*rng.Float64() - 1,
			}
			d, ok = geom.Unit(d)
		}
		trace[i] = geom.Add(trace[i-1], geom.Scale(d, bond))
	}
}

// Violation is a Cα distance or angle outside its accepted range.
type Violation struct {
	// Residue is the index of the residue the measurement is centered on.
	// For distances, it is the second residue of the pair.
	Residue int
	Angle   bool
	Value   float64
}

func (v Violation) String() string {
	if v.Angle {
		return fmt.Sprintf("angle %d = %.3f", v.Residue, v.Value)
	}
	return fmt.Sprintf("distance %d = %.3f A", v.Residue, v.Value)
}

// angleSlack is the margin outside [AngleMin-5, AngleMax] beyond which an
// angle is reported.
const angleSlack = 1.0

// CheckGeometry lists Cα-Cα distances farther than the tolerance from their
// target and pseudo bond angles outside [AngleMin-5, AngleMax] by more than
// one degree.
func CheckGeometry(trace []structure.Coords, cisPro []bool, p Params) []Violation {
	var vs []Violation
	s := &system{p: p, cisPro: cisPro}
	for i := 1; i < len(trace); i++ {
		d := geom.Distance(trace[i], trace[i-1])
		tol := p.BondTolerance
		if i < len(cisPro) && cisPro[i] {
			tol = p.CisProTolerance
		}
		if math.Abs(d-s.bondTarget(i)) >= tol {
			vs = append(vs, Violation{Residue: i, Value: d})
		}
	}
	for i := 1; i+1 < len(trace); i++ {
		theta := geom.Angle(trace[i-1], trace[i], trace[i+1])
		var off float64
		switch {
		case theta > p.AngleMax:
			off = theta - p.AngleMax
		case theta < p.AngleMin-5:
			off = p.AngleMin - 5 - theta
		}
		if off > angleSlack {
			vs = append(vs, Violation{Residue: i, Angle: true, Value: theta})
		}
	}
	return vs
}
