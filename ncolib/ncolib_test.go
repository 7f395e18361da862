package ncolib

import (
	"bytes"
	"math"
	"testing"

	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLib = Generate(7, 20000)

func TestBinValues(t *testing.T) {
	assert.Equal(t, Bins{0, 0, 0}, BinValues(4.6, 4.6, -11))
	assert.Equal(t, Bins{0, 0, 0}, BinValues(1.0, -3.0, -40))
	assert.Equal(t, Bins{9, 9, 73}, BinValues(40, 40, 40))

	// Rounding, not truncation: 4.6 + 0.3*2.6 is closer to bin 3.
	assert.Equal(t, 3, BinValues(4.6+0.3*2.6, 4.6, 0)[0])
	assert.Equal(t, 2, BinValues(4.6+0.3*2.4, 4.6, 0)[0])

	// Chirality sign moves the third bin across the middle.
	assert.Less(t, BinValues(5, 5, -6)[2], BinValues(5, 5, 6)[2])
	assert.True(t, BinValues(math.NaN(), 5, 5).Valid())
}

func TestBinsDistance(t *testing.T) {
	a := Bins{3, 4, 50}
	assert.Equal(t, 0.0, a.Distance(a))
	assert.InDelta(t, 2.0+1.0, a.Distance(Bins{5, 4, 55}), 1e-12)
}

func TestLookupTiesPreferEarliestRow(t *testing.T) {
	table := Table{
		{Bins: Bins{1, 1, 10}},
		{Bins: Bins{3, 1, 10}},
		{Bins: Bins{2, 2, 10}},
	}
	// Rows 0 and 1 are both at distance 1 from the query; row 2 too.
	row, hit := table.Lookup(Bins{2, 1, 10})
	assert.Equal(t, 0, row)
	assert.InDelta(t, 1.0, hit, 1e-12)
}

func TestLookupStopsOnExactHit(t *testing.T) {
	table := Table{
		{Bins: Bins{0, 0, 0}},
		{Bins: Bins{5, 5, 40}},
		{Bins: Bins{5, 5, 40}},
	}
	row, hit := table.Lookup(Bins{5, 5, 40})
	assert.Equal(t, 1, row)
	assert.Equal(t, 0.0, hit)

	row, hit = Table(nil).Lookup(Bins{5, 5, 40})
	assert.Equal(t, -1, row)
	assert.True(t, math.IsInf(hit, 1))
}

func TestGenerateIsDeterministic(t *testing.T) {
	a := Generate(3, 2000)
	b := Generate(3, 2000)
	assert.Equal(t, a, b)
	require.NoError(t, a.Validate())
}

func TestGeneratedRows(t *testing.T) {
	require.NoError(t, testLib.Validate())
	for _, table := range []Table{testLib.Generic, testLib.Proline} {
		for i := 1; i < len(table); i++ {
			assert.True(t, table[i-1].Bins.Less(table[i].Bins),
				"rows %d and %d out of order", i-1, i)
		}
		for _, row := range table {
			p := row.Points
			assert.Equal(t, row.Bins, Bin(p[CA0], p[CA1], p[CA2], p[CA3]))
			assert.InDelta(t, bondCN, geom.Distance(p[C], p[N]), 1e-9)
			assert.InDelta(t, bondCO, geom.Distance(p[C], p[O]), 1e-9)
			assert.InDelta(t, bondNCA, geom.Distance(p[N], p[CA2]), 1e-9)
			assert.InDelta(t, bondCAC, geom.Distance(p[CA1], p[C]), 1e-9)
			assert.InDelta(t, bondNH, geom.Distance(p[N], p[H]), 1e-9)
			for k := CA0; k < CA3; k++ {
				assert.InDelta(t, 3.8, geom.Distance(p[k], p[k+1]), 0.05)
			}
		}
	}
}

func TestHelixHasCloseRow(t *testing.T) {
	// Ideal alpha helix Cα positions: radius 2.3, rise 1.5, 100 degrees.
	var ca [4]structure.Coords
	for i := range ca {
		a := geom.Radians(100 * float64(i))
		ca[i] = structure.Coords{X: 2.3 * math.Cos(a), Y: 2.3 * math.Sin(a), Z: 1.5 * float64(i)}
	}
	b := Bin(ca[0], ca[1], ca[2], ca[3])
	row, hit := testLib.Generic.Lookup(b)
	require.True(t, row >= 0)
	assert.Less(t, hit, 1.0)
}

func TestSaveOpen(t *testing.T) {
	lib := Generate(11, 1000)
	buf := new(bytes.Buffer)
	require.NoError(t, lib.Save(buf))

	got, err := Open(buf)
	require.NoError(t, err)
	assert.Equal(t, lib, got)
	assert.Equal(t, lib.String(), got.String())
}

func TestOpenRejectsEmpty(t *testing.T) {
	buf := new(bytes.Buffer)
	require.NoError(t, (&Library{Ident: "empty"}).Save(buf))
	_, err := Open(buf)
	assert.ErrorIs(t, err, ErrEmptyTable)
}

func TestTableSelection(t *testing.T) {
	assert.Equal(t, len(testLib.Proline), len(testLib.Table(true)))
	assert.Equal(t, len(testLib.Generic), len(testLib.Table(false)))
}

func BenchmarkLookup(b *testing.B) {
	table := testLib.Generic
	for i := 0; i < b.N; i++ {
		table.Lookup(Bins{i % DistanceBins, (i / 3) % DistanceBins, i % ChiralityBins})
	}
}
