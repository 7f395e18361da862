package chain

import (
	"fmt"
	"strings"
)

// AminoAcid is a residue type code. The numbering is fixed: the statistical
// backbone tables and serialized libraries depend on it.
type AminoAcid uint8

const (
	Gly AminoAcid = iota
	Ala
	Ser
	Cys
	Val
	Thr
	Ile
	Pro
	Met
	Asp
	Asn
	Leu
	Lys
	Glu
	Gln
	Arg
	His
	Phe
	Tyr
	Trp
	Unknown
)

var aminoThree = [...]string{
	"GLY", "ALA", "SER", "CYS", "VAL", "THR", "ILE", "PRO", "MET", "ASP",
	"ASN", "LEU", "LYS", "GLU", "GLN", "ARG", "HIS", "PHE", "TYR", "TRP",
	"UNK",
}

var aminoOne = [...]byte{
	'G', 'A', 'S', 'C', 'V', 'T', 'I', 'P', 'M', 'D',
	'N', 'L', 'K', 'E', 'Q', 'R', 'H', 'F', 'Y', 'W',
	'X',
}

// aminoAliases maps modified or ambiguous residue names found in ATOM and
// HETATM records to the standard residue they stand in for.
var aminoAliases = map[string]AminoAcid{
	"MSE": Met, "SEC": Cys, "CSE": Cys, "HSD": His, "HSE": His, "HSP": His,
	"HID": His, "HIE": His, "HIP": His, "CYX": Cys, "ASX": Asn, "GLX": Gln,
	"PYL": Lys,
}

var threeToAmino = map[string]AminoAcid{}

func init() {
	for i, name := range aminoThree {
		threeToAmino[name] = AminoAcid(i)
	}
	for name, aa := range aminoAliases {
		threeToAmino[name] = aa
	}
}

// AminoAcidFromThree looks up a three letter residue name. Unrecognized
// names map to Unknown with ok set to false.
func AminoAcidFromThree(name string) (aa AminoAcid, ok bool) {
	aa, ok = threeToAmino[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Unknown, false
	}
	return aa, true
}

// Three returns the three letter code.
func (aa AminoAcid) Three() string {
	if int(aa) < len(aminoThree) {
		return aminoThree[aa]
	}
	return aminoThree[Unknown]
}

// One returns the single letter code.
func (aa AminoAcid) One() byte {
	if int(aa) < len(aminoOne) {
		return aminoOne[aa]
	}
	return aminoOne[Unknown]
}

func (aa AminoAcid) String() string {
	if int(aa) < len(aminoThree) {
		return aminoThree[aa]
	}
	return fmt.Sprintf("AminoAcid(%d)", int(aa))
}
