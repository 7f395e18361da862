package pdb

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/structure"
)

// Entry represents all information known about a particular PDB file (that
// has been implemented in this package).
//
// Currently, a PDB entry is simply a file path and the protein chains of its
// first model, in the order they first appear.
type Entry struct {
	Path   string
	Chains []*chain.Chain
}

// Chain returns the chain with the given identifier, or nil.
func (e *Entry) Chain(ident byte) *chain.Chain {
	for _, c := range e.Chains {
		if c.ID == ident {
			return c
		}
	}
	return nil
}

// String returns a list of all chains and their amino acid sequences.
func (e *Entry) String() string {
	lines := make([]string, 0, len(e.Chains))
	for _, c := range e.Chains {
		lines = append(lines, c.String())
	}
	return strings.Join(lines, "\n")
}

// ReadFile creates a new PDB Entry from a file. If the file cannot be read,
// or there is an error parsing the PDB file, an error is returned.
//
// If the file name ends with ".gz", gzip decompression will be used.
func ReadFile(fileName string) (*Entry, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if path.Ext(fileName) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fileName, err)
		}
		defer gz.Close()
		reader = gz
	}
	return Read(reader, fileName)
}

// Read parses ATOM and HETATM records up to the end of the first model.
//
// Hydrogens are skipped, and so are alternate locations other than ' ' and
// 'A'. HETATM records are kept only for residues that stand in for an amino
// acid (MSE and friends). A new residue starts whenever the sequence number,
// insertion code or chain changes, or when an N atom shows up again. Every
// atom read is flagged chain.Initial.
func Read(r io.Reader, name string) (*Entry, error) {
	entry := &Entry{Path: name}
	p := &parser{entry: entry}

	// Now traverse each line, and process it according to the record name.
	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		line := scanner.Bytes()
		if len(line) < 6 {
			if bytes.HasPrefix(line, []byte("END")) {
				break
			}
			continue
		}

		// The record name is always in the first six columns.
		record := strings.TrimSpace(string(line[0:6]))
		if record == "END" || record == "ENDMDL" {
			break
		}
		if record != "ATOM" && record != "HETATM" {
			continue
		}
		if err := p.atom(line, record == "HETATM"); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, lineno, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	p.finish()
	return entry, nil
}

type parser struct {
	entry *Entry

	// Residues being collected per chain, in input order.
	chains   []byte
	residues map[byte][]chain.Residue

	// The key of the residue currently receiving atoms.
	last  byte
	num   int
	icode byte
}

// atom loads an ATOM or HETATM record. Columns follow the PDB format
// specification (1-based): name 13-16, altloc 17, residue 18-20, chain 22,
// number 23-26, insertion code 27, coordinates 31-54, element 77-78.
func (p *parser) atom(line []byte, het bool) error {
	if len(line) < 54 {
		return fmt.Errorf("atom record has %d columns, want at least 54",
			len(line))
	}
	if alt := line[16]; alt != ' ' && alt != 'A' {
		return nil
	}

	resName := strings.TrimSpace(string(line[17:20]))
	aa, known := chain.AminoAcidFromThree(resName)
	if het && !known {
		return nil
	}

	atomName := strings.TrimSpace(string(line[12:16]))
	element := ""
	if len(line) >= 78 {
		element = strings.TrimSpace(string(line[76:78]))
	}
	if isHydrogen(atomName, element) {
		return nil
	}

	num, err := strconv.Atoi(strings.TrimSpace(string(line[22:26])))
	if err != nil {
		return fmt.Errorf("bad residue number: %w", err)
	}
	var coords [3]float64
	for i := range coords {
		field := strings.TrimSpace(string(line[30+8*i : 38+8*i]))
		if coords[i], err = strconv.ParseFloat(field, 64); err != nil {
			return fmt.Errorf("bad coordinate: %w", err)
		}
	}

	ident := line[21]
	icode := byte(' ')
	if len(line) > 26 {
		icode = line[26]
	}
	if p.residues == nil {
		p.residues = make(map[byte][]chain.Residue)
	}
	rs, seen := p.residues[ident]
	if !seen {
		p.chains = append(p.chains, ident)
	}

	fresh := len(rs) == 0 || ident != p.last || num != p.num ||
		icode != p.icode
	if !fresh && atomName == "N" {
		if _, dup := rs[len(rs)-1].Find("N"); dup {
			fresh = true
		}
	}
	if fresh {
		rs = append(rs, chain.Residue{Num: num, Type: aa, Chain: ident})
		p.last, p.num, p.icode = ident, num, icode
	}

	res := &rs[len(rs)-1]
	res.Atoms = append(res.Atoms, chain.Atom{
		Name:   atomName,
		Coords: structure.Coords{X: coords[0], Y: coords[1], Z: coords[2]},
		Flags:  chain.Classify(atomName) | chain.Initial,
	})
	p.residues[ident] = rs
	return nil
}

func (p *parser) finish() {
	for _, ident := range p.chains {
		c := chain.New(ident, p.residues[ident])
		for i := range c.Residues {
			c.Residues[i].UpdateCentroid()
		}
		p.entry.Chains = append(p.entry.Chains, c)
	}
}

// isHydrogen uses the element column when present and falls back to the
// atom name ("H", "HA", "1HB", "2HG1").
func isHydrogen(name, element string) bool {
	if element != "" {
		return element == "H" || element == "D"
	}
	name = strings.TrimLeft(name, "0123456789")
	return strings.HasPrefix(name, "H")
}

// Write emits the chains as ATOM records followed by TER after each chain
// and a final END. Atom serial numbers restart at 1. Side chain centroid
// pseudo atoms are not written.
func Write(w io.Writer, chains ...*chain.Chain) error {
	bw := bufio.NewWriter(w)
	writeChains(bw, chains)
	fmt.Fprintln(bw, "END")
	return bw.Flush()
}

// WriteModel emits the chains wrapped in MODEL and ENDMDL records. Several
// models followed by a single END make a trajectory.
func WriteModel(w io.Writer, model int, chains ...*chain.Chain) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "MODEL     %4d\n", model)
	writeChains(bw, chains)
	fmt.Fprintln(bw, "ENDMDL")
	return bw.Flush()
}

func writeChains(bw *bufio.Writer, chains []*chain.Chain) {
	serial := 1
	for _, c := range chains {
		var last *chain.Residue
		for i := range c.Residues {
			r := &c.Residues[i]
			for _, a := range r.Atoms {
				if a.Flags.Has(chain.Centroid) {
					continue
				}
				fmt.Fprintf(bw, "ATOM  %5d %-4s %3s %c%4d    "+
					"%8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
					serial%100000, atomField(a.Name), r.Type.Three(), c.ID,
					r.Num%10000, a.X, a.Y, a.Z, 1.0, 0.0, element(a.Name))
				serial++
			}
			last = r
		}
		if last != nil {
			fmt.Fprintf(bw, "TER   %5d      %3s %c%4d\n",
				serial%100000, last.Type.Three(), c.ID, last.Num%10000)
			serial++
		}
	}
}

// atomField aligns an atom name in columns 13-16: names shorter than four
// characters start in column 14.
func atomField(name string) string {
	if len(name) >= 4 {
		return name[:4]
	}
	return " " + name
}

func element(name string) string {
	name = strings.TrimLeft(name, "0123456789")
	if name == "" {
		return ""
	}
	return name[:1]
}
