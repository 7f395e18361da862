// pdb-rmsd computes the RMSD between the backbone atoms of two chains from
// PDB files, e.g., a rebuilt chain and the structure it was traced from.
// Residues are matched by residue number.
package main

import (
	"fmt"
	"os"

	"github.com/TuftsBCB/backbone/cmd/util"
	"github.com/TuftsBCB/backbone/rmsd"
	"github.com/spf13/cobra"
)

var (
	flagStart  = 0
	flagEnd    = -1
	flagAtoms  = []string{"N", "CA", "C", "O"}
	flagMethod = rmsd.SVD.String()

	rootCmd = &cobra.Command{
		Use:   "pdb-rmsd [flags] pdb-file chain-id pdb-file chain-id",
		Short: "Compute the RMSD between the backbones of two chains",
		Args:  cobra.ExactArgs(4),
		Run:   run,
	}
)

func init() {
	fs := rootCmd.Flags()
	fs.IntVar(&flagStart, "start", flagStart,
		"The first residue number to compare.")
	fs.IntVar(&flagEnd, "end", flagEnd,
		"The last residue number to compare. When smaller than --start,\n"+
			"every residue is compared.")
	fs.StringSliceVar(&flagAtoms, "atoms", flagAtoms,
		"The atom names to compare.")
	fs.StringVar(&flagMethod, "superposition", flagMethod,
		"The superposition solver: 'iterative' or 'svd'.")
	util.FlagUse(rootCmd, "verbose")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	pdbf1, chain1, pdbf2, chain2 := args[0], args[1], args[2], args[3]
	method, err := rmsd.ParseMethod(flagMethod)
	util.Assert(err)

	entry1 := util.PDBRead(pdbf1)
	entry2 := util.PDBRead(pdbf2)

	// Make sure the chains specified exist!
	c1 := entry1.Chain(chain1[0])
	if c1 == nil {
		util.Fatalf("The chain '%s' could not be found in '%s'.", chain1, pdbf1)
	}
	c2 := entry2.Chain(chain2[0])
	if c2 == nil {
		util.Fatalf("The chain '%s' could not be found in '%s'.", chain2, pdbf2)
	}

	fit, err := rmsd.Chains(c1, c2, flagStart, flagEnd, flagAtoms, method)
	util.Assert(err)
	if !fit.Converged && method == rmsd.Alternating {
		util.Warnf("Superposition did not converge after %d sweeps.", fit.Sweeps)
	}
	fmt.Println(fit.RMSD)
}
