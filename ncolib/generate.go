package ncolib

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
)

const (
	DefaultSeed    = 1
	DefaultSamples = 100000
)

// Ideal backbone geometry (Engh & Huber). Lengths in Angstroms, angles in
// degrees.
const (
	bondNCA = 1.458
	bondCAC = 1.525
	bondCN  = 1.329
	bondCO  = 1.231
	bondNH  = 1.01

	angleNCAC = 111.2
	angleCACN = 116.2
	angleCNCA = 121.7
	angleCACO = 120.5
)

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the library generated with DefaultSeed and DefaultSamples.
// It is built on first use and shared afterwards.
func Default() *Library {
	defaultOnce.Do(func() {
		defaultLib = Generate(DefaultSeed, DefaultSamples)
	})
	return defaultLib
}

// Generate builds a library by sampling backbone torsions for four residue
// fragments, building each fragment with ideal geometry and keeping, for
// every tetrad bin that was hit, the fragment closest to the bin center.
// The result depends only on seed and samples.
func Generate(seed int64, samples int) *Library {
	rng := rand.New(rand.NewSource(seed))
	return &Library{
		Ident:   fmt.Sprintf("generated-%d-%d", seed, samples),
		Seed:    seed,
		Samples: samples,
		Generic: generateTable(rng, samples, false),
		Proline: generateTable(rng, samples, true),
	}
}

type candidate struct {
	row   Row
	score float64
}

func generateTable(rng *rand.Rand, samples int, proline bool) Table {
	best := make(map[Bins]candidate, 2048)
	for s := 0; s < samples; s++ {
		t := sampleTorsions(rng, proline)
		row, r13a, r13b, r14 := buildRow(t)
		score := centerScore(row.Bins, r13a, r13b, r14)
		if old, ok := best[row.Bins]; !ok || score < old.score {
			best[row.Bins] = candidate{row, score}
		}
	}

	table := make(Table, 0, len(best))
	for _, c := range best {
		table = append(table, c.row)
	}
	sortTable(table)
	return table
}

// centerScore measures how far raw tetrad measurements are from the center
// of their bins, in bin widths, weighted like Bins.Distance.
func centerScore(b Bins, r13a, r13b, r14 float64) float64 {
	ca, cb, c14 := b.Center()
	return (math.Abs(r13a-ca)+math.Abs(r13b-cb)+0.2*math.Abs(r14-c14)) / binWidth
}

// torsions holds the backbone dihedrals of a fragment of residues
// i-2, i-1, i and i+1. Only those that move an atom of a row are kept.
type torsions struct {
	psi0, omega0       float64
	phi1, psi1, omega1 float64
	phi2, psi2, omega2 float64
}

// basin is a Gaussian region of the Ramachandran plot.
type basin struct {
	phi, psi, weight float64
}

const basinSpread = 15.0

var (
	// Remaining weight is spread uniformly over the whole plot.
	genericBasins = []basin{
		{-63, -43, 0.40},  // right handed helix
		{-120, 130, 0.25}, // beta strand
		{-70, 145, 0.15},  // polyproline II
		{60, 45, 0.05},    // left handed helix
	}
	prolineBasins = []basin{
		{-65, 145, 0.60},
		{-65, -30, 0.40},
	}
)

func sampleTorsions(rng *rand.Rand, proline bool) torsions {
	var t torsions
	_, t.psi0 = samplePair(rng, genericBasins)
	if proline {
		_, t.psi1 = samplePair(rng, prolineBasins)
		t.phi1 = -65 + 8*rng.NormFloat64()
	} else {
		t.phi1, t.psi1 = samplePair(rng, genericBasins)
	}
	t.phi2, t.psi2 = samplePair(rng, genericBasins)
	t.omega0 = sampleOmega(rng)
	t.omega1 = sampleOmega(rng)
	t.omega2 = sampleOmega(rng)
	return t
}

func samplePair(rng *rand.Rand, basins []basin) (phi, psi float64) {
	u := rng.Float64()
	for _, b := range basins {
		if u < b.weight {
			return wrap(b.phi + basinSpread*rng.NormFloat64()),
				wrap(b.psi + basinSpread*rng.NormFloat64())
		}
		u -= b.weight
	}
	return 360*rng.Float64() - 180, 360*rng.Float64() - 180
}

func sampleOmega(rng *rand.Rand) float64 {
	return wrap(180 + 5*rng.NormFloat64())
}

// wrap maps an angle in degrees to [-180, 180).
func wrap(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}

// buildRow builds the fragment described by t and returns its row together
// with the raw tetrad measurements.
func buildRow(t torsions) (row Row, r13a, r13b, r14 float64) {
	th := geom.Radians(angleNCAC)
	n0 := structure.Coords{}
	ca0 := structure.Coords{X: bondNCA}
	c0 := structure.Coords{
		X: bondNCA - bondCAC*math.Cos(th),
		Y: bondCAC * math.Sin(th),
	}

	n1 := geom.Place(n0, ca0, c0, bondCN, angleCACN, t.psi0)
	ca1 := geom.Place(ca0, c0, n1, bondNCA, angleCNCA, t.omega0)
	c1 := geom.Place(c0, n1, ca1, bondCAC, angleNCAC, t.phi1)

	n2 := geom.Place(n1, ca1, c1, bondCN, angleCACN, t.psi1)
	ca2 := geom.Place(ca1, c1, n2, bondNCA, angleCNCA, t.omega1)
	c2 := geom.Place(c1, n2, ca2, bondCAC, angleNCAC, t.phi2)

	n3 := geom.Place(n2, ca2, c2, bondCN, angleCACN, t.psi2)
	ca3 := geom.Place(ca2, c2, n3, bondNCA, angleCNCA, t.omega2)

	o1 := geom.Place(n1, ca1, c1, bondCO, angleCACO, wrap(t.psi1+180))

	// The amide hydrogen points away from the bisector of C(i-1) and Cα(i).
	u1, _ := geom.Unit(geom.Sub(n2, c1))
	u2, _ := geom.Unit(geom.Sub(n2, ca2))
	dir, ok := geom.Unit(geom.Add(u1, u2))
	if !ok {
		dir = geom.Perpendicular(geom.Sub(ca2, c1))
	}
	h2 := geom.Add(n2, geom.Scale(dir, bondNH))

	row.Points = [RowSize]structure.Coords{ca0, ca1, ca2, ca3, c1, o1, n2, h2}
	r13a = geom.Distance(ca0, ca2)
	r13b = geom.Distance(ca1, ca3)
	r14 = geom.Chirality(ca0, ca1, ca2, ca3)
	row.Bins = BinValues(r13a, r13b, r14)
	return
}
