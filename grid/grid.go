/*
Package grid is a uniform spatial hash over the atoms of a chain. It answers
"which atoms are near this point" by visiting the 3x3x3 block of cells around
the point's cell.

The grid stores atom references, not positions. Coordinates are always read
through the chain, so atoms that move slightly after the grid is built are
still reported at their current position. An atom that moves further than
one cell is not re-bucketed.
*/
package grid

import (
	"math"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/structure"
)

// DefaultCell is the default cell edge length in Angstroms.
const DefaultCell = 6.0

type Grid struct {
	c          *chain.Chain
	min        structure.Coords
	cell       float64
	nx, ny, nz int
	cells      [][]chain.AtomRef
}

// New buckets every atom of c into cubic cells of the given edge length.
// A non-positive cell uses DefaultCell.
func New(c *chain.Chain, cell float64) *Grid {
	if cell <= 0 {
		cell = DefaultCell
	}
	g := &Grid{c: c, cell: cell}

	refs := c.Refs()
	if len(refs) == 0 {
		g.nx, g.ny, g.nz = 1, 1, 1
		g.cells = make([][]chain.AtomRef, 1)
		return g
	}

	min := c.Atom(refs[0]).Coords
	max := min
	for _, ref := range refs[1:] {
		p := c.Atom(ref).Coords
		min.X, max.X = math.Min(min.X, p.X), math.Max(max.X, p.X)
		min.Y, max.Y = math.Min(min.Y, p.Y), math.Max(max.Y, p.Y)
		min.Z, max.Z = math.Min(min.Z, p.Z), math.Max(max.Z, p.Z)
	}
	g.min = min
	g.nx = int((max.X-min.X)/cell) + 1
	g.ny = int((max.Y-min.Y)/cell) + 1
	g.nz = int((max.Z-min.Z)/cell) + 1
	g.cells = make([][]chain.AtomRef, g.nx*g.ny*g.nz)

	for _, ref := range refs {
		ix, iy, iz := g.locate(c.Atom(ref).Coords)
		k := g.flat(ix, iy, iz)
		g.cells[k] = append(g.cells[k], ref)
	}
	return g
}

// Dims returns the number of cells along each axis.
func (g *Grid) Dims() (nx, ny, nz int) {
	return g.nx, g.ny, g.nz
}

// locate returns the cell containing p. Points outside the grid are clamped
// to the nearest boundary cell.
func (g *Grid) locate(p structure.Coords) (ix, iy, iz int) {
	return clampIndex(math.Floor((p.X-g.min.X)/g.cell), g.nx),
		clampIndex(math.Floor((p.Y-g.min.Y)/g.cell), g.ny),
		clampIndex(math.Floor((p.Z-g.min.Z)/g.cell), g.nz)
}

func clampIndex(v float64, n int) int {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= float64(n):
		return n - 1
	}
	return int(v)
}

func (g *Grid) flat(ix, iy, iz int) int {
	return (ix*g.ny+iy)*g.nz + iz
}

// Neighbors calls fn for every atom in the 27 cells around p. Iteration
// stops early if fn returns false.
func (g *Grid) Neighbors(p structure.Coords, fn func(ref chain.AtomRef) bool) {
	cx, cy, cz := g.locate(p)
	for ix := cx - 1; ix <= cx+1; ix++ {
		if ix < 0 || ix >= g.nx {
			continue
		}
		for iy := cy - 1; iy <= cy+1; iy++ {
			if iy < 0 || iy >= g.ny {
				continue
			}
			for iz := cz - 1; iz <= cz+1; iz++ {
				if iz < 0 || iz >= g.nz {
					continue
				}
				for _, ref := range g.cells[g.flat(ix, iy, iz)] {
					if !fn(ref) {
						return
					}
				}
			}
		}
	}
}

// Within returns every atom whose current position is closer than radius to
// p. The result is only complete for radius <= the cell size.
func (g *Grid) Within(p structure.Coords, radius float64) []chain.AtomRef {
	var found []chain.AtomRef
	r2 := radius * radius
	g.Neighbors(p, func(ref chain.AtomRef) bool {
		if geom.Distance2(p, g.c.Atom(ref).Coords) < r2 {
			found = append(found, ref)
		}
		return true
	})
	return found
}
