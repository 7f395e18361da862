/*
Package ncolib provides the statistical backbone library used to place
peptide backbone atoms on a Cα trace.

Every row of a library table is keyed by the Bins of a Cα tetrad
(i-2, i-1, i, i+1) and holds a template of that tetrad together with the
carbonyl carbon and oxygen of residue i-1 and the amide nitrogen and
hydrogen of residue i. Superimposing the template tetrad onto a real tetrad
and carrying the other four points along places the peptide bond between
residues i-1 and i.

A library has two tables. The Proline table is used when residue i-1 is a
proline; the Generic table is used otherwise.
*/
package ncolib

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/TuftsBCB/structure"
)

// Indices of the points stored in every row.
const (
	CA0 = iota
	CA1
	CA2
	CA3
	C
	O
	N
	H

	RowSize
)

// ExactHit is the lookup distance below which a row is accepted without
// looking at the rest of the table.
const ExactHit = 1e-3

var ErrEmptyTable = errors.New("backbone library table is empty")

// Row is a single template.
type Row struct {
	Bins   Bins
	Points [RowSize]structure.Coords
}

// Tetrad returns the four template Cα positions.
func (r *Row) Tetrad() []structure.Coords {
	return r.Points[CA0 : CA3+1]
}

// Table is an ordered list of rows. The order matters: ties in a lookup
// always resolve to the earliest row.
type Table []Row

// Lookup returns the index of the row closest to b and its distance. Rows
// are scanned in order, keeping the strictly best row so far, and the scan
// stops as soon as a row closer than ExactHit is found. An empty table
// returns (-1, +Inf).
func (t Table) Lookup(b Bins) (int, float64) {
	best, bestHit := -1, math.Inf(1)
	for i := range t {
		hit := t[i].Bins.Distance(b)
		if hit < bestHit {
			best, bestHit = i, hit
		}
		if hit < ExactHit {
			break
		}
	}
	return best, bestHit
}

// Library is a pair of template tables. It is never mutated after it is
// built or opened, so it can be shared freely between goroutines.
type Library struct {
	Ident   string
	Seed    int64
	Samples int
	Generic Table
	Proline Table
}

// Table returns the table to use for the peptide bond that follows a
// residue. prolineBefore should be true when that residue is a proline.
func (lib *Library) Table(prolineBefore bool) Table {
	if prolineBefore {
		return lib.Proline
	}
	return lib.Generic
}

// Validate checks that both tables are non-empty and every row is keyed by
// in-range bins.
func (lib *Library) Validate() error {
	for _, t := range []struct {
		name  string
		table Table
	}{{"generic", lib.Generic}, {"proline", lib.Proline}} {
		if len(t.table) == 0 {
			return fmt.Errorf("%s table: %w", t.name, ErrEmptyTable)
		}
		for i := range t.table {
			if !t.table[i].Bins.Valid() {
				return fmt.Errorf("%s table: row %d has invalid bins %s",
					t.name, i, t.table[i].Bins)
			}
		}
	}
	return nil
}

// Save saves the full library to the writer provided.
func (lib *Library) Save(w io.Writer) error {
	enc := gob.NewEncoder(w)
	return enc.Encode(*lib)
}

// Open loads an existing library from the reader provided.
func Open(r io.Reader) (*Library, error) {
	var lib *Library

	dec := gob.NewDecoder(r)
	if err := dec.Decode(&lib); err != nil {
		return nil, err
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return lib, nil
}

// Name returns the name of the library.
func (lib *Library) Name() string {
	return lib.Ident
}

// String returns a string with the name of the library and the size of
// each table.
func (lib *Library) String() string {
	return fmt.Sprintf("%s (generic %d, proline %d)",
		lib.Ident, len(lib.Generic), len(lib.Proline))
}

// sortTable orders rows by their bins.
func sortTable(t Table) {
	sort.Slice(t, func(i, j int) bool {
		return t[i].Bins.Less(t[j].Bins)
	})
}
