/*
Package hbond scores backbone N-H...O=C hydrogen bonds with the DSSP
electrostatic model and refines peptide plane orientations to improve them.

Only the amide of residue i is considered as a donor. Its acceptor is the
closest carbonyl oxygen of a residue more than two positions away and
within MaxDistance. The amide hydrogen is not read from the chain: it is
implied from the direction of the preceding carbonyl.
*/
package hbond

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/backbone/grid"
	"github.com/TuftsBCB/structure"
)

const (
	// Q is the DSSP electrostatic constant. Energies are 0.001 * Q times a
	// sum of inverse distances.
	Q = -27888.0

	// MaxDistance is the largest N-O distance of a hydrogen bond.
	MaxDistance = 5.0

	// NH is the length of the implied amide N-H bond.
	NH = 1.081

	// Clash is the energy assigned when any two of the four atoms are
	// closer than 0.01 Angstroms.
	Clash = -10.0

	// NoBond is the value of an Energy that has no partner.
	NoBond = 1000.0

	// Favorable is the largest energy counted in a Total.
	Favorable = -0.5
)

// Energy is the hydrogen bond energy of one residue's amide.
type Energy struct {
	// Value is the energy in kcal/mol, or NoBond when Bonded is false.
	Value float64

	// Bonded is false when the residue has no acceptor in range or lacks
	// one of the atoms needed to score it.
	Bonded bool

	// Partner is the index of the acceptor residue, or -1.
	Partner int
}

func (e Energy) String() string {
	if !e.Bonded {
		return "no bond"
	}
	return fmt.Sprintf("%.3f (acceptor %d)", e.Value, e.Partner)
}

var unbonded = Energy{Value: NoBond, Partner: -1}

// Compute returns the hydrogen bond energy of the amide of residue i. g
// must be a grid over c.
func Compute(c *chain.Chain, g *grid.Grid, i int) Energy {
	if i < 1 || i >= c.Len() {
		return unbonded
	}
	prev, res := &c.Residues[i-1], &c.Residues[i]
	n, ok1 := res.Position("N")
	cp, ok2 := prev.Position("C")
	op, ok3 := prev.Position("O")
	if !(ok1 && ok2 && ok3) {
		return unbonded
	}

	partner := -1
	var o structure.Coords
	best := MaxDistance * MaxDistance
	g.Neighbors(n, func(ref chain.AtomRef) bool {
		if abs(ref.Res-i) <= 2 {
			return true
		}
		a := c.Atom(ref)
		if a.Name != "O" {
			return true
		}
		if d2 := geom.Distance2(n, a.Coords); d2 < best {
			partner, o, best = ref.Res, a.Coords, d2
		}
		return true
	})
	if partner < 0 {
		return unbonded
	}
	oc, ok := c.Residues[partner].Position("C")
	if !ok {
		return unbonded
	}

	h, ok := Hydrogen(n, cp, op)
	if !ok {
		return unbonded
	}
	return Energy{Value: dssp(n, h, o, oc), Bonded: true, Partner: partner}
}

// Hydrogen returns the amide hydrogen implied by the nitrogen n and the
// carbonyl c=o of the preceding residue.
func Hydrogen(n, c, o structure.Coords) (structure.Coords, bool) {
	dir, ok := geom.Unit(geom.Sub(c, o))
	if !ok {
		return n, false
	}
	return geom.Add(n, geom.Scale(dir, NH)), true
}

func dssp(n, h, o, c structure.Coords) float64 {
	dno := geom.Distance(n, o)
	dnc := geom.Distance(n, c)
	dho := geom.Distance(h, o)
	dhc := geom.Distance(h, c)
	if dno < 0.01 || dnc < 0.01 || dho < 0.01 || dhc < 0.01 {
		return Clash
	}
	return 0.001 * Q * (1/dho - 1/dhc + 1/dnc - 1/dno)
}

// Total sums the favorable (at most Favorable) energies over the chain.
func Total(c *chain.Chain, g *grid.Grid) float64 {
	var total float64
	for i := 1; i < c.Len(); i++ {
		if e := Compute(c, g, i); e.Bonded && e.Value <= Favorable {
			total += e.Value
		}
	}
	return total
}

// Options control the refinement.
type Options struct {
	// Weak is the energy at or above which a residue is refined.
	Weak float64

	// MaxRotation and Step, in degrees, define the symmetric range of
	// rotations tried.
	MaxRotation, Step float64

	// Cell is the grid cell size.
	Cell float64

	// Preserve leaves alone every peptide plane holding an atom flagged
	// chain.Initial.
	Preserve bool

	Logger *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Weak:        1.0,
		MaxRotation: 10,
		Step:        1,
		Cell:        grid.DefaultCell,
	}
}

// Report summarizes a refinement.
type Report struct {
	// Before and After are the Totals around the refinement.
	Before, After float64

	// Tried counts residues that were weak enough to refine. Improved
	// counts those whose peptide plane was rotated. Pinned counts planes
	// skipped because they hold input atoms.
	Tried, Improved, Pinned int
}

func (r Report) String() string {
	return fmt.Sprintf("backbone HB energy: before %g, after: %g, "+
		"difference: %g (%d tried, %d improved)",
		r.Before, r.After, r.After-r.Before, r.Tried, r.Improved)
}

// Refine rotates the peptide plane preceding every weakly bonded non-proline
// residue about its Cα-Cα axis, keeping the rotation that gives the residue
// the lowest energy. A rotation is only kept if it strictly improves on the
// unrotated plane. With opts.Preserve set, planes holding input atoms are
// never rotated.
func Refine(c *chain.Chain, opts Options) Report {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	steps := 0
	if opts.Step > 0 {
		steps = int(math.Floor(opts.MaxRotation/opts.Step + 1e-9))
	}

	g := grid.New(c, opts.Cell)
	rep := Report{Before: Total(c, g)}
	for i := 1; i < c.Len(); i++ {
		if opts.Preserve && pinned(c, i) {
			rep.Pinned++
			continue
		}
		start, best, angle, tried := refineResidue(c, g, i, opts.Weak, opts.Step, steps)
		if !tried {
			continue
		}
		rep.Tried++
		if angle != 0 {
			rep.Improved++
			logger.Debug("rotated peptide plane",
				"residue", c.Residues[i].Num, "angle", angle,
				"before", start, "after", best)
		}
	}
	rep.After = Total(c, g)
	return rep
}

// refineResidue tries 2*steps rotations of the plane preceding residue i and
// commits the best one. It returns the energy before and after and the
// committed angle in degrees.
func refineResidue(
	c *chain.Chain,
	g *grid.Grid,
	i int,
	weak, step float64,
	steps int,
) (start, best, angle float64, tried bool) {
	if c.Residues[i].IsProline() {
		return
	}
	start = Compute(c, g, i).Value
	if start < weak {
		return
	}
	plane, ok := peptidePlane(c, i)
	if !ok {
		return
	}

	best = start
	for k := -steps; k <= steps; k++ {
		if k == 0 {
			continue
		}
		a := float64(k) * step
		plane.rotate(geom.Radians(a))
		if e := Compute(c, g, i); e.Value < best {
			best, angle = e.Value, a
		}
	}
	if angle == 0 {
		plane.restore()
	} else {
		plane.rotate(geom.Radians(angle))
	}
	return start, best, angle, true
}

// pinned reports whether the plane preceding residue i holds an input atom.
func pinned(c *chain.Chain, i int) bool {
	for _, at := range []struct {
		r    *chain.Residue
		name string
	}{{&c.Residues[i-1], "C"}, {&c.Residues[i-1], "O"}, {&c.Residues[i], "N"}} {
		if j, ok := at.r.Find(at.name); ok && at.r.Atoms[j].Flags.Has(chain.Initial) {
			return true
		}
	}
	return false
}

// plane is the rotatable part of the peptide between residues i-1 and i:
// C and O of i-1 and N of i.
type plane struct {
	atoms    [3]*chain.Atom
	original [3]structure.Coords
	origin   structure.Coords
	axis     structure.Coords
}

func peptidePlane(c *chain.Chain, i int) (*plane, bool) {
	prev, res := &c.Residues[i-1], &c.Residues[i]
	ca0, ok1 := prev.Position("CA")
	ca1, ok2 := res.Position("CA")
	if !(ok1 && ok2) {
		return nil, false
	}
	p := &plane{origin: ca0, axis: geom.Sub(ca1, ca0)}
	for k, at := range []struct {
		r    *chain.Residue
		name string
	}{{prev, "C"}, {prev, "O"}, {res, "N"}} {
		j, ok := at.r.Find(at.name)
		if !ok {
			return nil, false
		}
		p.atoms[k] = &at.r.Atoms[j]
		p.original[k] = p.atoms[k].Coords
	}
	return p, true
}

// rotate sets the plane to its original orientation rotated by rad.
func (p *plane) rotate(rad float64) {
	for k, a := range p.atoms {
		a.Coords = geom.RotateAbout(p.original[k], p.origin, p.axis, rad)
	}
}

func (p *plane) restore() {
	for k, a := range p.atoms {
		a.Coords = p.original[k]
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
