/*
pdb-rmsd computes the RMSD between the backbone atoms of two chains read from
PDB files. Each chain is specified by a PDB file path and a chain identifier.
Residues are paired by residue number, and only atoms present in both chains
are compared.

A PDB file may either be plain text or compressed using the Lempel-Ziv coding
(i.e., gzip). If the PDB file is gzipped, it must end with a '.gz' extension.

Usage:
	pdb-rmsd [flags] pdb-file chain-id pdb-file chain-id

Details

By default the N, CA, C and O atoms of every residue are compared. The --start
and --end flags restrict the comparison to an inclusive range of residue
numbers, and --atoms selects other atoms (e.g., '--atoms CA').

The optimal superposition is found with the Kabsch algorithm, described in
great detail here: http://cnx.org/content/m11608/latest/#MatrixAlignment.
The iterative solver used by pulchra-bb can be selected with
'--superposition iterative'.
*/
package main
