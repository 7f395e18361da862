// ncolib-mk generates a backbone fragment library and saves it to a file
// that pulchra-bb can load with --library.
package main

import (
	"os"

	"github.com/TuftsBCB/backbone/cmd/util"
	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/spf13/cobra"
)

var (
	flagSeed    = int64(ncolib.DefaultSeed)
	flagSamples = ncolib.DefaultSamples

	rootCmd = &cobra.Command{
		Use:   "ncolib-mk [flags] library-out-file",
		Short: "Generate a backbone fragment library",
		Args:  cobra.ExactArgs(1),
		Run:   run,
	}
)

func init() {
	rootCmd.Flags().Int64Var(&flagSeed, "seed", flagSeed,
		"Seeds the torsion sampler. The same seed and sample count always\n"+
			"produce the same library.")
	rootCmd.Flags().IntVar(&flagSamples, "samples", flagSamples,
		"The number of fragments sampled for each table.")
	util.FlagUse(rootCmd, "verbose")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	if flagSamples <= 0 {
		util.Fatalf("--samples must be positive, got %d.", flagSamples)
	}
	out := args[0]

	lib := ncolib.Generate(flagSeed, flagSamples)
	util.Assert(lib.Validate(), "Generated library is unusable")

	f := util.CreateFile(out)
	util.Assert(lib.Save(f), "Could not save library to '%s'", out)
	util.Assert(f.Close(), "Could not close '%s'", out)
	util.Logger.Info("library saved", "path", out, "library", lib.String())
}
