package rebuild

import (
	"math"
	"testing"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/TuftsBCB/backbone/rmsd"
	"github.com/TuftsBCB/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLib = ncolib.Generate(7, 20000)

// helix returns an ideal alpha helix Cα trace (about 3.8 A between
// neighbours).
func helix(n int) []structure.Coords {
	trace := make([]structure.Coords, n)
	for i := range trace {
		a := geom.Radians(100 * float64(i))
		trace[i] = structure.Coords{
			X: 2.3 * math.Cos(a),
			Y: 2.3 * math.Sin(a),
			Z: 1.5 * float64(i),
		}
	}
	return trace
}

func polyAla(n int) *chain.Chain {
	types := make([]chain.AminoAcid, n)
	for i := range types {
		types[i] = chain.Ala
	}
	return chain.FromTrace('A', types, helix(n))
}

func defaultOptions() Options {
	return Options{Library: testLib, Preserve: true}
}

func atomNames(r *chain.Residue) []string {
	names := make([]string, len(r.Atoms))
	for i, a := range r.Atoms {
		names[i] = a.Name
	}
	return names
}

func TestPolyAlanineHelix(t *testing.T) {
	c := polyAla(10)
	before, err := c.CaTrace()
	require.NoError(t, err)

	rep, err := Backbone(c, defaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 11, rep.Steps)
	assert.Zero(t, rep.CisPeptides)
	assert.Less(t, rep.MeanRMSD, 0.5)

	for i := range c.Residues {
		r := &c.Residues[i]
		want := []string{"N", "CA", "C", "O"}
		if i == c.Len()-1 {
			want = append(want, "OXT")
		}
		assert.Equal(t, want, atomNames(r), "residue %d", r.Num)
		for _, a := range r.Atoms {
			assert.True(t, geom.Finite(a.Coords), "%s %d", a.Name, r.Num)
		}
		n, _ := r.Position("N")
		ca, _ := r.Position("CA")
		assert.InDelta(t, 1.458, geom.Distance(n, ca), 0.5)
	}

	// The Cα trace is left alone.
	after, err := c.CaTrace()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	for i := 1; i < len(after); i++ {
		assert.InDelta(t, 3.8, geom.Distance(after[i], after[i-1]), 0.1)
	}
}

func TestPeptideBondLength(t *testing.T) {
	c := polyAla(12)
	_, err := Backbone(c, defaultOptions())
	require.NoError(t, err)

	// C(i-1) and N(i) come from the same rigidly moved template.
	for i := 1; i < c.Len(); i++ {
		cp, ok := c.Residues[i-1].Position("C")
		require.True(t, ok)
		n, ok := c.Residues[i].Position("N")
		require.True(t, ok)
		assert.InDelta(t, 1.329, geom.Distance(cp, n), 1e-6)
	}
}

func TestIdempotent(t *testing.T) {
	c := polyAla(10)
	_, err := Backbone(c, defaultOptions())
	require.NoError(t, err)
	first := c.Clone()

	_, err = Backbone(c, defaultOptions())
	require.NoError(t, err)
	for i := range c.Residues {
		require.Len(t, c.Residues[i].Atoms, len(first.Residues[i].Atoms))
		for j, a := range c.Residues[i].Atoms {
			b := first.Residues[i].Atoms[j]
			assert.Equal(t, b.Name, a.Name)
			assert.InDelta(t, 0, geom.Distance(a.Coords, b.Coords), 1e-9)
		}
	}
}

func TestShortChains(t *testing.T) {
	for n := 1; n < 5; n++ {
		c := polyAla(n)
		rep, err := Backbone(c, defaultOptions())
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, n+1, rep.Steps)

		last := &c.Residues[n-1]
		_, ok := last.Find("OXT")
		assert.True(t, ok, "length %d", n)
		for i := range c.Residues {
			for _, name := range []string{"N", "C", "O"} {
				p, ok := c.Residues[i].Position(name)
				assert.True(t, ok, "length %d residue %d %s", n, i, name)
				assert.True(t, geom.Finite(p))
			}
		}
	}
}

func TestMeanPlacementRMSD(t *testing.T) {
	// An extended strand: Cα atoms zig-zag 3.8 A apart.
	trace := make([]structure.Coords, 30)
	types := make([]chain.AminoAcid, len(trace))
	for i := range trace {
		trace[i] = structure.Coords{X: 3.3 * float64(i), Y: 0.95 * float64(1-2*(i%2))}
		types[i] = chain.Ala
	}
	for _, c := range []*chain.Chain{chain.FromTrace('A', types, trace), polyAla(3)} {
		rep, err := Backbone(c, defaultOptions())
		require.NoError(t, err)
		assert.Equal(t, c.Len()+1, rep.Steps)
		assert.Positive(t, rep.MaxRMSD)
		assert.LessOrEqual(t, rep.MeanRMSD, rep.MaxRMSD)
	}
}

func TestEmptyChain(t *testing.T) {
	_, err := Backbone(chain.New('A', nil), defaultOptions())
	assert.ErrorIs(t, err, chain.ErrEmptyChain)

	_, err = Extend(nil, rmsd.Alternating)
	assert.ErrorIs(t, err, chain.ErrEmptyChain)
}

func TestMissingCA(t *testing.T) {
	c := polyAla(6)
	c.Residues[3].Atoms[0].Name = "CB"
	_, err := Backbone(c, defaultOptions())

	var missing *chain.MissingAtomError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 4, missing.Num)
}

func TestExtend(t *testing.T) {
	trace := helix(8)
	padded, err := Extend(trace, rmsd.Alternating)
	require.NoError(t, err)
	require.Len(t, padded, len(trace)+2*Pad)
	assert.Equal(t, trace, padded[Pad:Pad+len(trace)])

	// A helix continues as a helix.
	want := helix(12)
	for i, p := range padded {
		var ideal structure.Coords
		switch {
		case i < Pad:
			a := geom.Radians(100 * float64(i-Pad))
			ideal = structure.Coords{
				X: 2.3 * math.Cos(a), Y: 2.3 * math.Sin(a),
				Z: 1.5 * float64(i-Pad),
			}
		default:
			ideal = want[i-Pad]
		}
		assert.InDelta(t, 0, geom.Distance(p, ideal), 0.05, "point %d", i)
	}
}

func TestExtendIdeal(t *testing.T) {
	for n := 1; n < 5; n++ {
		trace := helix(n)
		padded, err := Extend(trace, rmsd.Alternating)
		require.NoError(t, err)
		require.Len(t, padded, n+2*Pad)
		for i := 1; i < len(padded); i++ {
			assert.InDelta(t, IdealBond, geom.Distance(padded[i], padded[i-1]),
				0.1, "length %d point %d", n, i)
		}
		// No tetrad collapses.
		for i := 0; i+3 < len(padded); i++ {
			assert.Greater(t, geom.Distance(padded[i], padded[i+2]), 1.0)
		}
	}
}

func TestPreserveInitialAtoms(t *testing.T) {
	c := polyAla(6)
	fixed := structure.Coords{X: 100, Y: 100, Z: 100}
	c.Residues[2].AddReplace("N", fixed, chain.Backbone|chain.Initial, false)

	_, err := Backbone(c, defaultOptions())
	require.NoError(t, err)
	n, _ := c.Residues[2].Position("N")
	assert.Equal(t, fixed, n)

	opts := defaultOptions()
	opts.Preserve = false
	_, err = Backbone(c, opts)
	require.NoError(t, err)
	n, _ = c.Residues[2].Position("N")
	assert.NotEqual(t, fixed, n)
}

func TestHydrogens(t *testing.T) {
	types := []chain.AminoAcid{chain.Ala, chain.Gly, chain.Pro, chain.Ala, chain.Ser, chain.Ala}
	c := chain.FromTrace('A', types, helix(len(types)))
	opts := defaultOptions()
	opts.Hydrogens = true
	_, err := Backbone(c, opts)
	require.NoError(t, err)

	for i := range c.Residues {
		r := &c.Residues[i]
		h, ok := r.Position("H")
		if i == 0 || r.IsProline() {
			assert.False(t, ok, "residue %d", i)
			continue
		}
		require.True(t, ok, "residue %d", i)
		n, _ := r.Position("N")
		assert.InDelta(t, 1.01, geom.Distance(h, n), 1e-6)
		assert.Equal(t, "H", r.Atoms[len(r.Atoms)-1].Name)
	}
}

func TestSolversAgree(t *testing.T) {
	a, b := polyAla(10), polyAla(10)
	_, err := Backbone(a, defaultOptions())
	require.NoError(t, err)
	opts := defaultOptions()
	opts.Method = rmsd.SVD
	_, err = Backbone(b, opts)
	require.NoError(t, err)

	for i := range a.Residues {
		for j, at := range a.Residues[i].Atoms {
			bt := b.Residues[i].Atoms[j]
			assert.InDelta(t, 0, geom.Distance(at.Coords, bt.Coords), 0.05)
		}
	}
}

func TestCisPeptides(t *testing.T) {
	prev := chain.Residue{Atoms: []chain.Atom{
		{Name: "CA", Coords: structure.Coords{X: 0, Y: 1}},
		{Name: "C", Coords: structure.Coords{X: 0}},
	}}
	res := chain.Residue{Atoms: []chain.Atom{
		{Name: "N", Coords: structure.Coords{X: 1.3}},
		{Name: "CA", Coords: structure.Coords{X: 1.3, Y: 1}},
	}}
	omega, ok := Omega(&prev, &res)
	require.True(t, ok)
	assert.InDelta(t, 0, omega, 1e-9)

	c := chain.New('A', []chain.Residue{prev, res})
	assert.Equal(t, []int{1}, CisPeptides(c))

	res.Atoms[1].Y = -1
	c = chain.New('A', []chain.Residue{prev, res})
	assert.Empty(t, CisPeptides(c))

	_, ok = Omega(&prev, &chain.Residue{})
	assert.False(t, ok)
}

func BenchmarkBackbone(b *testing.B) {
	opts := defaultOptions()
	for i := 0; i < b.N; i++ {
		if _, err := Backbone(polyAla(100), opts); err != nil {
			b.Fatal(err)
		}
	}
}
