package hbond

import (
	"math"
	"testing"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/backbone/grid"
	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/TuftsBCB/backbone/rebuild"
	"github.com/TuftsBCB/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLib = ncolib.Generate(7, 20000)

func xyz(x, y, z float64) structure.Coords {
	return structure.Coords{X: x, Y: y, Z: z}
}

func atom(name string, p structure.Coords) chain.Atom {
	return chain.Atom{Name: name, Coords: p, Flags: chain.Classify(name)}
}

// donorAcceptor builds a chain in which residue 1 donates a straight
// hydrogen bond to the carbonyl of residue 4. Residue 2 has an oxygen
// closer to the donor, but it is too close in sequence. Residue 5 has a
// carbonyl in range but further away than residue 4's.
func donorAcceptor() *chain.Chain {
	rs := []chain.Residue{
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("CA", xyz(-1.5, -2.5, 0)),
			atom("C", xyz(-0.5, -1.2, 0)),
			atom("O", xyz(-1.731, -1.2, 0)),
		}},
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("N", xyz(0, 0, 0)),
			atom("CA", xyz(0, 1.45, 0)),
		}},
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("CA", xyz(0, 3, 3)),
			atom("O", xyz(0, 0, 1.5)),
		}},
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("CA", xyz(8, 8, 8)),
		}},
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("CA", xyz(5, 1, 0)),
			atom("O", xyz(2.9, 0, 0)),
			atom("C", xyz(4.131, 0, 0)),
		}},
		{Type: chain.Ala, Atoms: []chain.Atom{
			atom("CA", xyz(0, -6, 0)),
			atom("O", xyz(0, -4.5, 0)),
			atom("C", xyz(0, -5.7, 0)),
		}},
	}
	return chain.New('A', rs)
}

func TestComputeStraightBond(t *testing.T) {
	c := donorAcceptor()
	g := grid.New(c, grid.DefaultCell)

	e := Compute(c, g, 1)
	require.True(t, e.Bonded)
	assert.Equal(t, 4, e.Partner)

	dno, dnc := 2.9, 4.131
	dho, dhc := 2.9-NH, 4.131-NH
	want := 0.001 * Q * (1/dho - 1/dhc + 1/dnc - 1/dno)
	assert.InDelta(t, want, e.Value, 1e-9)
	assert.Less(t, e.Value, Favorable)
	assert.InDelta(t, want, Total(c, g), 1e-9)
}

func TestHydrogen(t *testing.T) {
	h, ok := Hydrogen(xyz(0, 0, 0), xyz(-0.5, -1.2, 0), xyz(-1.731, -1.2, 0))
	require.True(t, ok)
	assert.InDelta(t, NH, h.X, 1e-12)
	assert.InDelta(t, 0, h.Y, 1e-12)

	_, ok = Hydrogen(xyz(0, 0, 0), xyz(1, 1, 1), xyz(1, 1, 1))
	assert.False(t, ok)
}

func TestComputeUnbonded(t *testing.T) {
	c := donorAcceptor()
	g := grid.New(c, grid.DefaultCell)

	for _, i := range []int{-1, 0, 2, 6} {
		e := Compute(c, g, i)
		assert.False(t, e.Bonded, "residue %d", i)
		assert.Equal(t, NoBond, e.Value)
		assert.Equal(t, -1, e.Partner)
	}

	// Without a carbon, the acceptor cannot be scored.
	c.Residues[4].Atoms = c.Residues[4].Atoms[:2]
	g = grid.New(c, grid.DefaultCell)
	assert.False(t, Compute(c, g, 1).Bonded)
}

func TestComputeClash(t *testing.T) {
	c := donorAcceptor()
	k, _ := c.Residues[4].Find("O")
	c.Residues[4].Atoms[k].Coords = xyz(NH, 0, 0)
	g := grid.New(c, grid.DefaultCell)
	assert.Equal(t, Clash, Compute(c, g, 1).Value)
}

// helixChain returns a poly-alanine helix with a placed backbone.
func helixChain(t *testing.T, n int) *chain.Chain {
	trace := make([]structure.Coords, n)
	types := make([]chain.AminoAcid, n)
	for i := range trace {
		a := geom.Radians(100 * float64(i))
		trace[i] = xyz(2.3*math.Cos(a), 2.3*math.Sin(a), 1.5*float64(i))
		types[i] = chain.Ala
	}
	types[7] = chain.Pro
	c := chain.FromTrace('A', types, trace)
	_, err := rebuild.Backbone(c, rebuild.Options{Library: testLib})
	require.NoError(t, err)
	return c
}

// twist rotates every peptide plane by alternating angles so most bonds
// are weakened.
func twist(c *chain.Chain) {
	for i := 1; i < c.Len(); i++ {
		p, ok := peptidePlane(c, i)
		if ok {
			p.rotate(geom.Radians(float64(8 * (2*(i%2) - 1))))
		}
	}
}

func TestRefineNeverWorsens(t *testing.T) {
	c := helixChain(t, 20)
	twist(c)
	g := grid.New(c, grid.DefaultCell)

	tried := 0
	for i := 1; i < c.Len(); i++ {
		start, best, angle, ok := refineResidue(c, g, i, math.Inf(-1), 1, 10)
		if !ok {
			assert.True(t, c.Residues[i].IsProline(), "residue %d", i)
			continue
		}
		tried++
		after := Compute(c, g, i).Value
		assert.LessOrEqual(t, after, start, "residue %d", i)
		assert.Equal(t, best, after, "residue %d", i)
		if angle == 0 {
			assert.Equal(t, start, after)
		} else {
			assert.Less(t, after, start)
			assert.LessOrEqual(t, math.Abs(angle), 10.0)
		}
	}
	assert.Equal(t, c.Len()-2, tried)
}

func TestRefineKeepsBondLengths(t *testing.T) {
	c := helixChain(t, 16)
	twist(c)
	before := c.Clone()

	opts := DefaultOptions()
	opts.Weak = math.Inf(-1)
	rep := Refine(c, opts)
	assert.Equal(t, c.Len()-2, rep.Tried)
	assert.LessOrEqual(t, rep.Improved, rep.Tried)
	assert.Contains(t, rep.String(), "backbone HB energy")

	dist := func(c *chain.Chain, i int, a, b string) float64 {
		r := &c.Residues[i]
		pa, _ := r.Position(a)
		pb, _ := r.Position(b)
		return geom.Distance(pa, pb)
	}
	for i := range c.Residues {
		assert.InDelta(t, dist(before, i, "N", "CA"), dist(c, i, "N", "CA"), 1e-9)
		assert.InDelta(t, dist(before, i, "CA", "C"), dist(c, i, "CA", "C"), 1e-9)
		assert.InDelta(t, dist(before, i, "C", "O"), dist(c, i, "C", "O"), 1e-9)
	}
}

func TestRefineSkipsStrongBonds(t *testing.T) {
	c := donorAcceptor()
	before := c.Clone()
	rep := Refine(c, DefaultOptions())

	// Residue 1 is already bonded and the others lack a complete peptide
	// plane.
	assert.Zero(t, rep.Improved)
	assert.Equal(t, before, c)
	assert.InDelta(t, rep.Before, rep.After, 1e-12)
}

func TestRefinePreserve(t *testing.T) {
	c := helixChain(t, 20)
	twist(c)
	for i := 1; i < c.Len(); i += 2 {
		k, ok := c.Residues[i].Find("N")
		require.True(t, ok)
		c.Residues[i].Atoms[k].Flags |= chain.Initial
	}
	free := c.Clone()
	before := c.Clone()

	opts := DefaultOptions()
	opts.Weak = math.Inf(-1)
	opts.Preserve = true
	rep := Refine(c, opts)
	assert.Equal(t, 10, rep.Pinned)
	for i := 1; i < c.Len(); i += 2 {
		for _, at := range []struct {
			r    int
			name string
		}{{i - 1, "C"}, {i - 1, "O"}, {i, "N"}} {
			want, _ := before.Residues[at.r].Position(at.name)
			got, _ := c.Residues[at.r].Position(at.name)
			assert.Equal(t, want, got, "residue %d atom %s", at.r, at.name)
		}
	}

	// Without preservation the same planes are fair game.
	opts.Preserve = false
	rep = Refine(free, opts)
	assert.Zero(t, rep.Pinned)
	assert.Positive(t, rep.Improved)
}

func TestRefinePreserveEverything(t *testing.T) {
	c := helixChain(t, 20)
	twist(c)
	for i := range c.Residues {
		for k := range c.Residues[i].Atoms {
			c.Residues[i].Atoms[k].Flags |= chain.Initial
		}
	}
	before := c.Clone()

	opts := DefaultOptions()
	opts.Weak = math.Inf(-1)
	opts.Preserve = true
	rep := Refine(c, opts)
	assert.Zero(t, rep.Tried)
	assert.Zero(t, rep.Improved)
	assert.Equal(t, c.Len()-1, rep.Pinned)
	assert.Equal(t, before, c)
	assert.InDelta(t, rep.Before, rep.After, 1e-12)
}
