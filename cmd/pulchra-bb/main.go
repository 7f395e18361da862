// pulchra-bb rebuilds the backbone (N, C, O and optionally H) of every
// chain in a PDB file from its Cα trace.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path"
	"runtime/pprof"
	"strings"
	"sync"

	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/cmd/util"
	"github.com/TuftsBCB/backbone/pdb"
	"github.com/TuftsBCB/backbone/reconstruct"
	"github.com/TuftsBCB/structure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

var (
	flagConfig      = ""
	flagLibrary     = ""
	flagOutput      = ""
	flagTrajectory  = ""
	flagTrace       = false
	flagMetricsFile = ""

	// flagCfg receives the reconstruction flags. Only flags set on the
	// command line override the configuration file.
	flagCfg   = reconstruct.DefaultConfig()
	overrides = map[string]func(dst *reconstruct.Config){}

	rootCmd = &cobra.Command{
		Use:   "pulchra-bb [flags] input.pdb[.gz]",
		Short: "Rebuild protein backbone atoms from a Cα trace",
		Long: `pulchra-bb optimizes the Cα trace of every chain in the input,
places backbone atoms from a library of four residue fragments and
optionally refines the peptide planes to improve hydrogen bonding.

The output is written to input.rebuilt.pdb unless --output is given.`,
		Args: cobra.ExactArgs(1),
		Run:  run,
	}
)

func init() {
	fs := rootCmd.Flags()
	fs.StringVarP(&flagConfig, "config", "c", flagConfig,
		"A YAML configuration file. Flags given explicitly override it.")
	fs.StringVar(&flagLibrary, "library", flagLibrary,
		"A backbone library written by ncolib-mk. The built in library\n"+
			"is used when empty.")
	fs.StringVarP(&flagOutput, "output", "o", flagOutput,
		"Where to write the rebuilt chains. '-' means stdout.")
	fs.StringVar(&flagTrajectory, "trajectory", flagTrajectory,
		"When set, every Cα optimizer step is written to this file as a\n"+
			"PDB model.")
	fs.BoolVar(&flagTrace, "trace", flagTrace,
		"When set, pipeline spans are printed to stderr.")
	fs.StringVar(&flagMetricsFile, "metrics-file", flagMetricsFile,
		"When set, Prometheus metrics are written to this file in the\n"+
			"text exposition format.")

	boolOpt("rebuild-backbone", func(c *reconstruct.Config) *bool {
		return &c.RebuildBackbone
	}, "Place N, C and O atoms.")
	boolOpt("optimize-hbonds", func(c *reconstruct.Config) *bool {
		return &c.OptimizeHBonds
	}, "Rotate peptide planes to improve backbone hydrogen bonds.")
	boolOpt("optimize-calpha", func(c *reconstruct.Config) *bool {
		return &c.OptimizeCalpha
	}, "Optimize the Cα trace before placing the backbone.")
	boolOpt("randomize-calpha", func(c *reconstruct.Config) *bool {
		return &c.RandomizeCalphaStart
	}, "Replace the Cα trace with a random walk before optimizing.")
	intOpt("max-calpha-iterations", func(c *reconstruct.Config) *int {
		return &c.MaxCalphaIterations
	}, "The maximum number of Cα optimizer steps.")
	boolOpt("cis-proline", func(c *reconstruct.Config) *bool {
		return &c.TreatCisProline
	}, "Detect cis-prolines and keep their short Cα distance.")
	boolOpt("preserve", func(c *reconstruct.Config) *bool {
		return &c.PreserveInitialAtoms
	}, "Never move backbone atoms present in the input.")
	boolOpt("hydrogens", func(c *reconstruct.Config) *bool {
		return &c.RebuildHydrogens
	}, "Add amide hydrogens.")
	boolOpt("center", func(c *reconstruct.Config) *bool {
		return &c.CenterChain
	}, "Move the centroid of each chain to the origin.")
	floatOpt("bond", func(c *reconstruct.Config) *float64 {
		return &c.Bond.Target
	}, "The ideal Cα-Cα distance.")
	floatOpt("bond-tolerance", func(c *reconstruct.Config) *float64 {
		return &c.Bond.Tolerance
	}, "The allowed deviation from the ideal Cα-Cα distance.")
	floatOpt("cis-bond", func(c *reconstruct.Config) *float64 {
		return &c.CisProline.Target
	}, "The ideal Cα-Cα distance before a cis-proline.")
	floatOpt("cis-bond-tolerance", func(c *reconstruct.Config) *float64 {
		return &c.CisProline.Tolerance
	}, "The allowed deviation before a cis-proline.")
	floatOpt("force-bond", func(c *reconstruct.Config) *float64 {
		return &c.Force.Bond
	}, "The Cα-Cα distance force constant.")
	floatOpt("force-angle", func(c *reconstruct.Config) *float64 {
		return &c.Force.Angle
	}, "The Cα angle force constant.")
	floatOpt("force-anchor", func(c *reconstruct.Config) *float64 {
		return &c.Force.Anchor
	}, "The force constant restraining Cα atoms to the input.")
	floatOpt("force-clash", func(c *reconstruct.Config) *float64 {
		return &c.Force.Clash
	}, "The Cα clash force constant.")
	floatOpt("anchor-radius", func(c *reconstruct.Config) *float64 {
		return &c.AnchorRadius
	}, "How far a Cα atom may drift from the input without penalty.")
	floatOpt("clash-distance", func(c *reconstruct.Config) *float64 {
		return &c.ClashDistance
	}, "The closest two non-adjacent Cα atoms may approach.")
	floatOpt("angle-min", func(c *reconstruct.Config) *float64 {
		return &c.AngleMin
	}, "The smallest allowed Cα angle in degrees.")
	floatOpt("angle-max", func(c *reconstruct.Config) *float64 {
		return &c.AngleMax
	}, "The largest allowed Cα angle in degrees.")
	int64Opt("seed", func(c *reconstruct.Config) *int64 {
		return &c.Seed
	}, "Seeds the random start and the optimizer.")
	stringOpt("superposition", func(c *reconstruct.Config) *string {
		return &c.Superposition
	}, "The superposition solver: 'iterative' or 'svd'.")
	floatOpt("hbond-weak", func(c *reconstruct.Config) *float64 {
		return &c.HBondWeakThreshold
	}, "Hydrogen bonds at or above this energy are refined.")
	floatOpt("hbond-max-rotation", func(c *reconstruct.Config) *float64 {
		return &c.HBondMaxRotation
	}, "The largest peptide plane rotation tried, in degrees.")
	floatOpt("hbond-step", func(c *reconstruct.Config) *float64 {
		return &c.HBondRotationStep
	}, "The peptide plane rotation step, in degrees.")

	util.FlagUse(rootCmd, "cpu", "cpuprof", "verbose")
}

func boolOpt(name string, field func(*reconstruct.Config) *bool, usage string) {
	p := field(&flagCfg)
	rootCmd.Flags().BoolVar(p, name, *p, usage)
	overrides[name] = func(dst *reconstruct.Config) { *field(dst) = *p }
}

func intOpt(name string, field func(*reconstruct.Config) *int, usage string) {
	p := field(&flagCfg)
	rootCmd.Flags().IntVar(p, name, *p, usage)
	overrides[name] = func(dst *reconstruct.Config) { *field(dst) = *p }
}

func int64Opt(name string, field func(*reconstruct.Config) *int64, usage string) {
	p := field(&flagCfg)
	rootCmd.Flags().Int64Var(p, name, *p, usage)
	overrides[name] = func(dst *reconstruct.Config) { *field(dst) = *p }
}

func floatOpt(name string, field func(*reconstruct.Config) *float64, usage string) {
	p := field(&flagCfg)
	rootCmd.Flags().Float64Var(p, name, *p, usage)
	overrides[name] = func(dst *reconstruct.Config) { *field(dst) = *p }
}

func stringOpt(name string, field func(*reconstruct.Config) *string, usage string) {
	p := field(&flagCfg)
	rootCmd.Flags().StringVar(p, name, *p, usage)
	overrides[name] = func(dst *reconstruct.Config) { *field(dst) = *p }
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	input := args[0]

	if len(util.FlagCpuProf) > 0 {
		f := util.CreateFile(util.FlagCpuProf)
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg := util.Config(flagConfig)
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply(&cfg)
		}
	}
	util.Assert(cfg.Validate())

	if flagTrace {
		exporter, err := stdouttrace.New(
			stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(os.Stderr))
		util.Assert(err, "Could not create span exporter")
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		otel.SetTracerProvider(tp)
		defer func() {
			util.Warning(tp.Shutdown(context.Background()),
				"Could not flush spans")
		}()
	}

	lib := util.Library(flagLibrary)
	entry := util.PDBRead(input)
	if len(entry.Chains) == 0 {
		util.Fatalf("No chains found in '%s'.", input)
	}
	util.Logger.Info("read input", "path", input,
		"chains", len(entry.Chains), "library", lib.Name())

	r := reconstruct.New(cfg, lib)
	r.Logger = util.Logger
	reg := prometheus.NewRegistry()
	if len(flagMetricsFile) > 0 {
		r.Metrics = reconstruct.NewMetrics(reg)
	}
	if len(flagTrajectory) > 0 {
		traj := newTrajectory(util.CreateFile(flagTrajectory))
		defer traj.Close()
		r.Trajectory = traj.Frame
	}

	progress := util.NewProgress(len(entry.Chains))
	reports := make([]*reconstruct.Report, len(entry.Chains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(util.Workers())
	for i, c := range entry.Chains {
		i, c := i, c
		g.Go(func() error {
			rep, err := r.Run(gctx, c)
			progress.JobDone(err)
			reports[i] = rep
			return err
		})
	}
	err := g.Wait()
	progress.Close()
	util.Assert(err, "Could not reconstruct '%s'", input)

	for _, rep := range reports {
		summarize(rep)
	}

	out := flagOutput
	if out == "" {
		out = rebuiltName(input)
	}
	var w io.Writer = os.Stdout
	if out != "-" {
		f := util.CreateFile(out)
		defer f.Close()
		w = f
	}
	util.Assert(pdb.Write(w, entry.Chains...), "Could not write '%s'", out)

	if len(flagMetricsFile) > 0 {
		util.Assert(prometheus.WriteToTextfile(flagMetricsFile, reg),
			"Could not write metrics to '%s'", flagMetricsFile)
	}
}

func summarize(rep *reconstruct.Report) {
	attrs := []any{"chain", string(rep.Chain), "residues", rep.Residues}
	if rep.Calpha != nil {
		attrs = append(attrs,
			"calpha_iterations", rep.Calpha.Iterations,
			"calpha_energy", rep.Calpha.Final.Total())
	}
	if len(rep.CisProlines) > 0 {
		attrs = append(attrs, "cis_prolines", len(rep.CisProlines))
	}
	if rep.Backbone != nil {
		attrs = append(attrs, "placement_rmsd", rep.Backbone.MeanRMSD)
	}
	if rep.HBonds != nil {
		attrs = append(attrs,
			"hbond_before", rep.HBonds.Before, "hbond_after", rep.HBonds.After)
	}
	util.Logger.Info("chain rebuilt", attrs...)
}

// rebuiltName turns "x/1abc.pdb.gz" into "x/1abc.rebuilt.pdb".
func rebuiltName(input string) string {
	name := strings.TrimSuffix(input, ".gz")
	name = strings.TrimSuffix(name, path.Ext(name))
	return name + ".rebuilt.pdb"
}

// trajectory writes optimizer frames as consecutive PDB models. Chains are
// optimized concurrently, so frames of different chains interleave.
type trajectory struct {
	mu    sync.Mutex
	f     *os.File
	model int
}

func newTrajectory(f *os.File) *trajectory {
	return &trajectory{f: f}
}

func (t *trajectory) Frame(c *chain.Chain, iteration int, trace []structure.Coords) {
	types := make([]chain.AminoAcid, c.Len())
	for i := range c.Residues {
		types[i] = c.Residues[i].Type
	}
	frame := chain.FromTrace(c.ID, types, trace)
	for i := range frame.Residues {
		frame.Residues[i].Num = c.Residues[i].Num
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.model++
	util.Warning(pdb.WriteModel(t.f, t.model, frame),
		"Could not write trajectory frame %d of chain '%c'", iteration, c.ID)
}

func (t *trajectory) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.f, "END")
	util.Warning(t.f.Close(), "Could not close trajectory")
}
