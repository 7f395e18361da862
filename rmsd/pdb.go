package rmsd

import (
	"fmt"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/structure"
)

// Chains is a convenience function for computing the RMSD between two
// chains, for instance a rebuilt chain and the reference it was traced from.
// Only the named atoms (e.g., "N", "CA", "C", "O") of residues whose numbers
// fall in the inclusive range start-end are used. Residues are matched by
// residue number; atoms present in only one of the chains are skipped.
// A range with end < start covers every residue.
//
// An error will be returned if the range does not correspond to any
// matching atoms.
func Chains(chain1, chain2 *chain.Chain, start, end int,
	atoms []string, m Method) (Fit, error) {

	byNum := make(map[int]*chain.Residue, chain2.Len())
	for i := range chain2.Residues {
		r := &chain2.Residues[i]
		byNum[r.Num] = r
	}

	// Pick the atoms of every residue in range that both chains have.
	struct1 := make([]structure.Coords, 0, len(atoms)*chain1.Len())
	struct2 := make([]structure.Coords, 0, len(atoms)*chain1.Len())
	for i := range chain1.Residues {
		r1 := &chain1.Residues[i]
		if end >= start && (r1.Num < start || r1.Num > end) {
			continue
		}
		r2, ok := byNum[r1.Num]
		if !ok {
			continue
		}
		for _, name := range atoms {
			p1, ok1 := r1.Position(name)
			p2, ok2 := r2.Position(name)
			if ok1 && ok2 {
				struct1 = append(struct1, p1)
				struct2 = append(struct2, p2)
			}
		}
	}

	if len(struct1) == 0 {
		return Fit{}, fmt.Errorf("the range '%d-%d' (for chains %c and %c) "+
			"does not correspond to any shared %v atoms",
			start, end, chain1.ID, chain2.ID, atoms)
	}
	return m.Superimpose(struct1, struct2, nil), nil
}
