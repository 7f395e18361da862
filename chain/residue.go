package chain

import (
	"strings"

	"github.com/TuftsBCB/structure"
)

// Find returns the index of the atom with the given name.
func (r *Residue) Find(name string) (int, bool) {
	for i := range r.Atoms {
		if r.Atoms[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Position returns the coordinates of the named atom.
func (r *Residue) Position(name string) (structure.Coords, bool) {
	if i, ok := r.Find(name); ok {
		return r.Atoms[i].Coords, true
	}
	return structure.Coords{}, false
}

// IsProline reports whether the residue is a proline.
func (r *Residue) IsProline() bool {
	return r.Type == Pro
}

// AddReplace sets the position of the named atom, creating it if needed.
//
// An existing atom flagged Initial keeps its coordinates when preserve is
// true; flags are merged either way. New atoms are inserted in the order
// N, CA, C, O, side chain, OXT, H.
func (r *Residue) AddReplace(
	name string,
	pos structure.Coords,
	flags Flag,
	preserve bool,
) {
	if i, ok := r.Find(name); ok {
		a := &r.Atoms[i]
		if !(preserve && a.Flags.Has(Initial)) {
			a.Coords = pos
		}
		a.Flags |= flags
		return
	}

	atom := Atom{Name: name, Coords: pos, Flags: flags, Residue: r.Index}
	rank := atomRank(name)
	at := len(r.Atoms)
	for i := range r.Atoms {
		if atomRank(r.Atoms[i].Name) > rank {
			at = i
			break
		}
	}
	r.Atoms = append(r.Atoms, Atom{})
	copy(r.Atoms[at+1:], r.Atoms[at:])
	r.Atoms[at] = atom
}

// UpdateCentroid recomputes the cached side chain centroid. A pseudo
// centroid atom, when present, wins over the mean of the side chain atoms.
func (r *Residue) UpdateCentroid() {
	r.HasCentroid = false
	var sum structure.Coords
	n := 0
	for _, a := range r.Atoms {
		switch {
		case a.Flags.Has(Centroid):
			r.Centroid, r.HasCentroid = a.Coords, true
			return
		case a.Flags.Has(SideChain):
			sum.X += a.X
			sum.Y += a.Y
			sum.Z += a.Z
			n++
		}
	}
	if n > 0 {
		f := float64(n)
		r.Centroid = structure.Coords{X: sum.X / f, Y: sum.Y / f, Z: sum.Z / f}
		r.HasCentroid = true
	}
}

// atomRank orders atom names inside a residue.
func atomRank(name string) int {
	switch name {
	case "N":
		return 0
	case "CA":
		return 1
	case "C":
		return 2
	case "O":
		return 3
	case "OXT":
		return 7
	case "H":
		return 8
	}
	return 6
}

// Classify returns the role flag for an atom name.
func Classify(name string) Flag {
	switch strings.TrimSpace(name) {
	case "N", "CA", "C", "O", "OXT", "OT1", "OT2", "H":
		return Backbone
	case "SC", "CM":
		return Centroid
	}
	return SideChain
}
