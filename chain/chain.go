/*
Package chain defines the mutable protein chain that every stage of backbone
reconstruction reads and writes.

A Chain owns one slice of residues and every residue owns one small slice of
atoms. Atoms refer back to their residue by index, and atoms are referred to
from the outside by (residue, atom) index pairs. Nothing is ever removed from
a chain during reconstruction, so these indices stay valid for the lifetime
of a run.
*/
package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TuftsBCB/structure"
)

// Flag records the role and provenance of an atom.
type Flag uint8

const (
	Backbone Flag = 1 << iota
	SideChain
	Centroid
	Initial
)

// Has reports whether every bit in g is set in f.
func (f Flag) Has(g Flag) bool {
	return f&g == g
}

func (f Flag) String() string {
	var names []string
	for _, fl := range []struct {
		flag Flag
		name string
	}{
		{Backbone, "backbone"}, {SideChain, "sidechain"},
		{Centroid, "centroid"}, {Initial, "initial"},
	} {
		if f.Has(fl.flag) {
			names = append(names, fl.name)
		}
	}
	return strings.Join(names, "|")
}

// Atom is a single named position inside a residue.
type Atom struct {
	Name string
	structure.Coords
	Flags Flag

	// Residue is the index of the owning residue in its chain.
	Residue int
}

// AtomRef addresses an atom by position. The coordinates are always read
// through the chain, so a reference never goes stale when an atom moves.
type AtomRef struct {
	Res, Atom int
}

// Residue is an amino acid in a chain.
type Residue struct {
	// Index is the position of the residue in the chain.
	Index int

	// Num is the residue sequence number from the input.
	Num int

	Type   AminoAcid
	Chain  byte
	CisPro bool
	Atoms  []Atom

	// Centroid caches the side chain centroid. It is only meaningful when
	// HasCentroid is true.
	Centroid    structure.Coords
	HasCentroid bool
}

// Chain is an ordered list of residues. Order is adjacency.
type Chain struct {
	ID       byte
	Residues []Residue
}

var ErrEmptyChain = errors.New("chain has no residues")

// MissingAtomError is returned when a residue lacks an atom that a stage
// requires.
type MissingAtomError struct {
	Chain byte
	Num   int
	Type  AminoAcid
	Atom  string
}

func (e *MissingAtomError) Error() string {
	return fmt.Sprintf("residue %s %d (chain '%c') has no %s atom",
		e.Type, e.Num, e.Chain, e.Atom)
}

// DuplicateAtomError is returned when a residue holds more than one atom
// with a name that must be unique.
type DuplicateAtomError struct {
	Chain byte
	Num   int
	Type  AminoAcid
	Atom  string
	Count int
}

func (e *DuplicateAtomError) Error() string {
	return fmt.Sprintf("residue %s %d (chain '%c') has %d %s atoms",
		e.Type, e.Num, e.Chain, e.Count, e.Atom)
}

// New creates a chain from residues. Residue indices and the residue index
// of every atom are (re)assigned from slice order.
func New(id byte, residues []Residue) *Chain {
	c := &Chain{ID: id, Residues: residues}
	for i := range c.Residues {
		r := &c.Residues[i]
		r.Index = i
		if r.Chain == 0 {
			r.Chain = id
		}
		for j := range r.Atoms {
			r.Atoms[j].Residue = i
		}
	}
	return c
}

// Len returns the number of residues.
func (c *Chain) Len() int {
	return len(c.Residues)
}

// Validate checks that the chain is non-empty and that every residue has
// exactly one alpha carbon.
func (c *Chain) Validate() error {
	if len(c.Residues) == 0 {
		return ErrEmptyChain
	}
	for i := range c.Residues {
		r := &c.Residues[i]
		count := 0
		for _, a := range r.Atoms {
			if a.Name == "CA" {
				count++
			}
		}
		switch {
		case count == 0:
			return &MissingAtomError{Chain: c.ID, Num: r.Num, Type: r.Type, Atom: "CA"}
		case count > 1:
			return &DuplicateAtomError{
				Chain: c.ID, Num: r.Num, Type: r.Type, Atom: "CA", Count: count,
			}
		}
	}
	return nil
}

// CaTrace returns a copy of the alpha carbon positions in chain order.
func (c *Chain) CaTrace() ([]structure.Coords, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	trace := make([]structure.Coords, len(c.Residues))
	for i := range c.Residues {
		trace[i], _ = c.Residues[i].Position("CA")
	}
	return trace, nil
}

// SetCaTrace writes alpha carbon positions back into the chain.
func (c *Chain) SetCaTrace(trace []structure.Coords) error {
	if len(trace) != len(c.Residues) {
		return fmt.Errorf("trace has %d positions but chain '%c' has %d "+
			"residues", len(trace), c.ID, len(c.Residues))
	}
	for i := range c.Residues {
		r := &c.Residues[i]
		k, ok := r.Find("CA")
		if !ok {
			return &MissingAtomError{Chain: c.ID, Num: r.Num, Type: r.Type, Atom: "CA"}
		}
		r.Atoms[k].Coords = trace[i]
	}
	return nil
}

// Atom returns the atom addressed by ref.
func (c *Chain) Atom(ref AtomRef) *Atom {
	return &c.Residues[ref.Res].Atoms[ref.Atom]
}

// Refs returns a reference to every atom in the chain, in chain order.
func (c *Chain) Refs() []AtomRef {
	refs := make([]AtomRef, 0, 8*len(c.Residues))
	for i := range c.Residues {
		for j := range c.Residues[i].Atoms {
			refs = append(refs, AtomRef{i, j})
		}
	}
	return refs
}

// Clone returns a deep copy of the chain.
func (c *Chain) Clone() *Chain {
	cp := &Chain{ID: c.ID, Residues: make([]Residue, len(c.Residues))}
	for i, r := range c.Residues {
		cp.Residues[i] = r
		cp.Residues[i].Atoms = append([]Atom(nil), r.Atoms...)
	}
	return cp
}

// Sequence returns the one letter sequence of the chain.
func (c *Chain) Sequence() string {
	seq := make([]byte, len(c.Residues))
	for i := range c.Residues {
		seq[i] = c.Residues[i].Type.One()
	}
	return string(seq)
}

func (c *Chain) String() string {
	return fmt.Sprintf("> Chain %c :: length %d\n%s",
		c.ID, len(c.Residues), c.Sequence())
}

// FromTrace builds a chain holding only alpha carbons, flagged Initial.
// Residues are numbered from 1. If types is shorter than trace, the missing
// residues are Unknown.
func FromTrace(id byte, types []AminoAcid, trace []structure.Coords) *Chain {
	residues := make([]Residue, len(trace))
	for i, ca := range trace {
		aa := Unknown
		if i < len(types) {
			aa = types[i]
		}
		residues[i] = Residue{
			Num:  i + 1,
			Type: aa,
			Atoms: []Atom{{
				Name:   "CA",
				Coords: ca,
				Flags:  Backbone | Initial,
			}},
		}
	}
	return New(id, residues)
}
