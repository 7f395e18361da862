package ncolib

import (
	"fmt"
	"math"

	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
)

const (
	// DistanceBins is the number of bins for both 1-3 Cα distances.
	DistanceBins = 10

	// ChiralityBins is the number of bins for the signed 1-4 Cα distance.
	ChiralityBins = 74

	distanceOrigin  = 4.6
	chiralityOrigin = -11.0
	binWidth        = 0.3
)

// Bins is the quantized shape of a Cα tetrad (i-2, i-1, i, i+1):
// the distance (i-2, i), the distance (i-1, i+1) and the chirality of the
// whole tetrad.
type Bins [3]int

// Bin computes the bins of a Cα tetrad.
func Bin(ca0, ca1, ca2, ca3 structure.Coords) Bins {
	return BinValues(
		geom.Distance(ca0, ca2),
		geom.Distance(ca1, ca3),
		geom.Chirality(ca0, ca1, ca2, ca3))
}

// BinValues quantizes raw tetrad measurements.
func BinValues(r13a, r13b, r14 float64) Bins {
	return Bins{
		quantize(r13a, distanceOrigin, DistanceBins),
		quantize(r13b, distanceOrigin, DistanceBins),
		quantize(r14, chiralityOrigin, ChiralityBins),
	}
}

func quantize(v, origin float64, n int) int {
	b := math.Round((v - origin) / binWidth)
	switch {
	case math.IsNaN(b) || b < 0:
		return 0
	case b > float64(n-1):
		return n - 1
	}
	return int(b)
}

// Center returns the raw measurements at the center of each bin.
func (b Bins) Center() (r13a, r13b, r14 float64) {
	return distanceOrigin + binWidth*float64(b[0]),
		distanceOrigin + binWidth*float64(b[1]),
		chiralityOrigin + binWidth*float64(b[2])
}

// Distance is the weighted L1 distance used to pick library rows.
func (b Bins) Distance(o Bins) float64 {
	return math.Abs(float64(b[0]-o[0])) +
		math.Abs(float64(b[1]-o[1])) +
		0.2*math.Abs(float64(b[2]-o[2]))
}

// Valid reports whether every bin is in range.
func (b Bins) Valid() bool {
	return b[0] >= 0 && b[0] < DistanceBins &&
		b[1] >= 0 && b[1] < DistanceBins &&
		b[2] >= 0 && b[2] < ChiralityBins
}

// Less orders bins lexicographically.
func (b Bins) Less(o Bins) bool {
	if b[0] != o[0] {
		return b[0] < o[0]
	}
	if b[1] != o[1] {
		return b[1] < o[1]
	}
	return b[2] < o[2]
}

func (b Bins) String() string {
	return fmt.Sprintf("(%d, %d, %d)", b[0], b[1], b[2])
}
