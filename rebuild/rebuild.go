/*
Package rebuild places backbone N, C and O atoms (and optionally amide
hydrogens) on a chain that has at least its alpha carbons.

Every peptide bond i-1 -> i is placed from the Cα tetrad (i-2, i-1, i, i+1).
The tetrad is binned, the closest template of the statistical library is
superimposed onto it, and the template's C, O and N follow along. The trace
is padded with two virtual Cα at each end so the first and last bonds have a
full tetrad.
*/
package rebuild

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/TuftsBCB/backbone/rmsd"
	"github.com/TuftsBCB/structure"
)

// Pad is the number of virtual Cα added to each end of a trace.
const Pad = 2

// Pseudo geometry used to extend traces too short to extend by
// superposition.
const (
	IdealBond    = 3.8
	IdealAngle   = 120.0
	IdealTorsion = -170.0
)

// cisOmega is the largest |ω| in degrees of a peptide bond counted as cis.
const cisOmega = 30.0

// Options control backbone placement.
type Options struct {
	// Library is the template library. It must not be nil.
	Library *ncolib.Library

	// Method selects the superposition solver.
	Method rmsd.Method

	// Preserve keeps atoms present in the input (flagged Initial) where
	// they are.
	Preserve bool

	// Hydrogens adds the amide hydrogen of every non-proline residue except
	// the first.
	Hydrogens bool

	Logger *slog.Logger
}

// Report describes a placement pass.
type Report struct {
	// Steps is the number of peptide bonds placed, including the terminal
	// carboxyl group.
	Steps int

	// MeanRMSD and MaxRMSD summarize how well the chosen templates fit
	// their tetrads.
	MeanRMSD, MaxRMSD float64

	// Inexact counts lookups that did not find a row with identical bins.
	Inexact int

	// Unconverged counts superpositions that hit the sweep limit.
	Unconverged int

	// CisPeptides counts placed peptide bonds with |ω| below 30 degrees.
	CisPeptides int
}

func (r Report) String() string {
	return fmt.Sprintf("backbone rebuilding deviation: average = %.3f, "+
		"max = %.3f (%d steps, %d inexact, %d cis)",
		r.MeanRMSD, r.MaxRMSD, r.Steps, r.Inexact, r.CisPeptides)
}

// Extend returns trace padded with Pad virtual points on each end, so that
// element i of trace is element i+Pad of the result.
//
// Traces with at least five points are extended by superimposing the first
// (last) three points with the three points two positions further in and
// carrying the outer points along. Shorter traces are extended with ideal
// pseudo geometry.
func Extend(trace []structure.Coords, m rmsd.Method) ([]structure.Coords, error) {
	n := len(trace)
	if n == 0 {
		return nil, chain.ErrEmptyChain
	}
	padded := make([]structure.Coords, n+2*Pad)
	copy(padded[Pad:], trace)

	if n >= 5 {
		head := append([]structure.Coords(nil), trace[:5]...)
		m.Superimpose(trace[:3], trace[2:5], head)
		copy(padded[:Pad], head[:Pad])

		tail := append([]structure.Coords(nil), trace[n-5:]...)
		m.Superimpose(trace[n-3:], trace[n-5:n-2], tail)
		copy(padded[n+Pad:], tail[3:])
		return padded, nil
	}

	ext := append([]structure.Coords(nil), trace...)
	for k := 0; k < Pad; k++ {
		ext = extendIdeal(ext)
	}
	ext = reversed(ext)
	for k := 0; k < Pad; k++ {
		ext = extendIdeal(ext)
	}
	return reversed(ext), nil
}

// extendIdeal appends one point to pts. Missing reference points are taken
// from the start of pts, which makes geom.Place fall back to a
// deterministic reference plane.
func extendIdeal(pts []structure.Coords) []structure.Coords {
	n := len(pts)
	a, b := pts[max(n-3, 0)], pts[max(n-2, 0)]
	next := geom.Place(a, b, pts[n-1], IdealBond, IdealAngle, IdealTorsion)
	return append(pts, next)
}

func reversed(pts []structure.Coords) []structure.Coords {
	r := make([]structure.Coords, len(pts))
	for i, p := range pts {
		r[len(pts)-1-i] = p
	}
	return r
}

// Backbone places N, C, O and OXT on every residue of c from its Cα trace.
// Existing atoms are overwritten unless opts.Preserve is set and they came
// from the input.
func Backbone(c *chain.Chain, opts Options) (Report, error) {
	var rep Report
	if opts.Library == nil {
		return rep, fmt.Errorf("no backbone library")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	trace, err := c.CaTrace()
	if err != nil {
		return rep, err
	}
	padded, err := Extend(trace, opts.Method)
	if err != nil {
		return rep, err
	}

	n := c.Len()
	var total float64
	for i := 0; i <= n; i++ {
		var prev *chain.Residue
		if i > 0 {
			prev = &c.Residues[i-1]
		}
		table := opts.Library.Table(prev != nil && prev.IsProline())

		tetrad := padded[i : i+4]
		bins := ncolib.Bin(tetrad[0], tetrad[1], tetrad[2], tetrad[3])
		best, hit := table.Lookup(bins)
		if best < 0 {
			return rep, fmt.Errorf("placing residue %d: %w", i, ncolib.ErrEmptyTable)
		}
		if hit >= ncolib.ExactHit {
			rep.Inexact++
		}

		row := &table[best]
		pts := row.Points
		fit := opts.Method.Superimpose(tetrad, row.Tetrad(), pts[:])
		if !fit.Converged {
			rep.Unconverged++
		}
		total += fit.RMSD
		rep.MaxRMSD = math.Max(rep.MaxRMSD, fit.RMSD)
		rep.Steps++

		if prev != nil {
			prev.AddReplace("C", pts[ncolib.C], chain.Backbone, opts.Preserve)
			prev.AddReplace("O", pts[ncolib.O], chain.Backbone, opts.Preserve)
		}
		if i == n {
			prev.AddReplace("OXT", pts[ncolib.N], chain.Backbone, opts.Preserve)
			continue
		}
		res := &c.Residues[i]
		res.AddReplace("N", pts[ncolib.N], chain.Backbone, opts.Preserve)
		if opts.Hydrogens && prev != nil && !res.IsProline() {
			res.AddReplace("H", pts[ncolib.H], chain.Backbone, opts.Preserve)
		}
		logger.Debug("placed peptide",
			"residue", res.Num, "bins", bins.String(),
			"row", best, "hit", hit, "rmsd", fit.RMSD)
	}
	if rep.Steps > 0 {
		rep.MeanRMSD = total / float64(rep.Steps)
	}
	rep.CisPeptides = len(CisPeptides(c))
	logger.Debug(rep.String())
	return rep, nil
}

// CisPeptides returns the index of every residue whose peptide bond to the
// previous residue has an ω dihedral within 30 degrees of zero. Residues
// missing any of the four atoms are skipped.
func CisPeptides(c *chain.Chain) []int {
	var cis []int
	for i := 1; i < c.Len(); i++ {
		omega, ok := Omega(&c.Residues[i-1], &c.Residues[i])
		if ok && math.Abs(omega) < cisOmega {
			cis = append(cis, i)
		}
	}
	return cis
}

// Omega returns the CA-C-N-CA dihedral of the peptide bond between prev
// and res.
func Omega(prev, res *chain.Residue) (float64, bool) {
	ca0, ok1 := prev.Position("CA")
	c0, ok2 := prev.Position("C")
	n1, ok3 := res.Position("N")
	ca1, ok4 := res.Position("CA")
	if !(ok1 && ok2 && ok3 && ok4) {
		return geom.NoDihedral, false
	}
	return geom.Dihedral(ca0, c0, n1, ca1)
}
