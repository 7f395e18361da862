/*
Package reconstruct runs the backbone reconstruction pipeline on a chain:
optional cis-proline detection, Cα trace optimization, backbone placement,
hydrogen bond refinement and centering, in that order.

The pipeline mutates the chain in place. It performs no I/O. Independent
chains may be reconstructed concurrently with the same library.
*/
package reconstruct

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"github.com/TuftsBCB/backbone/caopt"
	"github.com/TuftsBCB/backbone/chain"
	"github.com/TuftsBCB/backbone/geom"
	"github.com/TuftsBCB/backbone/hbond"
	"github.com/TuftsBCB/backbone/ncolib"
	"github.com/TuftsBCB/backbone/rebuild"
	"github.com/TuftsBCB/structure"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/TuftsBCB/backbone/reconstruct")

// Stage names used for spans, logs and metrics.
const (
	StageCalpha   = "calpha"
	StageBackbone = "backbone"
	StageHBonds   = "hbonds"
	StageCenter   = "center"
)

// Report collects what every stage did. Stages that did not run leave
// their field nil.
type Report struct {
	RunID    string
	Chain    byte
	Residues int

	// CisProlines lists the residue indices taken as cis-prolines.
	CisProlines []int

	Calpha     *caopt.Result
	Violations []caopt.Violation
	Backbone   *rebuild.Report
	HBonds     *hbond.Report

	// Shift is the translation applied by centering.
	Shift structure.Coords
}

// Reconstructor holds what is shared between runs.
type Reconstructor struct {
	Config  Config
	Library *ncolib.Library
	Logger  *slog.Logger
	Metrics *Metrics

	// Trajectory, when set, receives the Cα trace of a chain at every
	// optimizer iteration.
	Trajectory func(c *chain.Chain, iteration int, trace []structure.Coords)
}

// New returns a reconstructor. A nil library uses ncolib.Default().
func New(cfg Config, lib *ncolib.Library) *Reconstructor {
	if lib == nil {
		lib = ncolib.Default()
	}
	return &Reconstructor{Config: cfg, Library: lib}
}

// Reconstruct runs the whole pipeline on c with a one-off reconstructor.
func Reconstruct(
	ctx context.Context,
	c *chain.Chain,
	lib *ncolib.Library,
	cfg Config,
) (*Report, error) {
	return New(cfg, lib).Run(ctx, c)
}

// Run reconstructs c in place. The chain is validated first; a chain with
// a residue lacking its Cα is rejected with a *chain.MissingAtomError, and
// one with several with a *chain.DuplicateAtomError.
func (r *Reconstructor) Run(ctx context.Context, c *chain.Chain) (rep *Report, err error) {
	rep = &Report{RunID: uuid.NewString(), Chain: c.ID, Residues: c.Len()}
	ctx, span := tracer.Start(ctx, "reconstruct.Run", trace.WithAttributes(
		attribute.String("run.id", rep.RunID),
		attribute.String("chain.id", string(c.ID)),
		attribute.Int("chain.residues", c.Len()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		r.Metrics.observeChain(err)
	}()

	base := r.Logger
	if base == nil {
		base = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := base.With("run", rep.RunID, "chain", string(c.ID))

	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return rep, err
	}
	if err := c.Validate(); err != nil {
		return rep, fmt.Errorf("chain '%c': %w", c.ID, err)
	}
	logger.Info("reconstructing chain", "residues", c.Len())

	if cfg.OptimizeCalpha || cfg.RandomizeCalphaStart || cfg.TreatCisProline {
		if err := r.stage(ctx, logger, StageCalpha, func(ctx context.Context) error {
			return r.calpha(ctx, logger, c, rep)
		}); err != nil {
			return rep, err
		}
	}
	if cfg.RebuildBackbone {
		if err := r.stage(ctx, logger, StageBackbone, func(ctx context.Context) error {
			br, err := rebuild.Backbone(c, rebuild.Options{
				Library:   r.Library,
				Method:    cfg.Method(),
				Preserve:  cfg.PreserveInitialAtoms,
				Hydrogens: cfg.RebuildHydrogens,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			rep.Backbone = &br
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Float64("placement.rmsd.mean", br.MeanRMSD),
				attribute.Float64("placement.rmsd.max", br.MaxRMSD),
				attribute.Int("placement.inexact", br.Inexact),
			)
			logger.Info(br.String())
			return nil
		}); err != nil {
			return rep, err
		}
	}
	if cfg.RebuildBackbone && cfg.OptimizeHBonds {
		if err := r.stage(ctx, logger, StageHBonds, func(ctx context.Context) error {
			opts := cfg.HBondOptions()
			opts.Logger = logger
			hr := hbond.Refine(c, opts)
			rep.HBonds = &hr
			trace.SpanFromContext(ctx).SetAttributes(
				attribute.Float64("hbond.before", hr.Before),
				attribute.Float64("hbond.after", hr.After),
				attribute.Int("hbond.improved", hr.Improved),
				attribute.Int("hbond.pinned", hr.Pinned),
			)
			logger.Info(hr.String())
			return nil
		}); err != nil {
			return rep, err
		}
	}
	if cfg.CenterChain {
		if err := r.stage(ctx, logger, StageCenter, func(context.Context) error {
			rep.Shift = Center(c, cfg.PreserveInitialAtoms)
			return nil
		}); err != nil {
			return rep, err
		}
	}
	r.Metrics.observeReport(rep)
	return rep, nil
}

// stage runs fn inside its own span, after checking for cancellation.
func (r *Reconstructor) stage(
	ctx context.Context,
	logger *slog.Logger,
	name string,
	fn func(ctx context.Context) error,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "reconstruct."+name)
	defer span.End()

	start := time.Now()
	logger.Debug("stage started", "stage", name)
	err := fn(ctx)
	r.Metrics.observeStage(name, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug("stage finished", "stage", name, "elapsed", time.Since(start))
	return nil
}

// calpha detects cis-prolines, randomizes and optimizes the Cα trace as
// configured.
func (r *Reconstructor) calpha(
	ctx context.Context,
	logger *slog.Logger,
	c *chain.Chain,
	rep *Report,
) error {
	cfg := r.Config
	params := cfg.Params()
	trace0, err := c.CaTrace()
	if err != nil {
		return err
	}

	var cis []bool
	if cfg.TreatCisProline {
		cis = caopt.DetectCisProlines(c, trace0, params)
		for i, ok := range cis {
			if ok {
				rep.CisProlines = append(rep.CisProlines, i)
				logger.Info("probable cis-proline", "residue", c.Residues[i].Num)
			}
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	work := append([]structure.Coords(nil), trace0...)
	if cfg.RandomizeCalphaStart {
		logger.Info("generating random Cα coordinates")
		caopt.RandomWalk(work, params.BondTarget, rng)
	}

	if cfg.OptimizeCalpha {
		o := caopt.New(params, rng)
		o.Logger = logger
		if r.Trajectory != nil {
			o.Observer = func(iteration int, ca []structure.Coords) {
				r.Trajectory(c, iteration, ca)
			}
		}
		res := o.Optimize(work, trace0, cis)
		rep.Calpha = &res
		rep.Violations = caopt.CheckGeometry(work, cis, params)
		for _, v := range rep.Violations {
			logger.Warn("Cα geometry out of range", "violation", v.String())
		}
		trace.SpanFromContext(ctx).SetAttributes(
			attribute.Int("calpha.iterations", res.Iterations),
			attribute.Float64("calpha.energy.initial", res.Initial.Total()),
			attribute.Float64("calpha.energy.final", res.Final.Total()),
			attribute.String("calpha.stop", res.Stop.String()),
		)
		logger.Info("Cα optimization done",
			"iterations", res.Iterations, "stop", res.Stop.String(),
			"bond", res.Final.Bond, "angle", res.Final.Angle,
			"restraints", res.Final.Anchor, "xvol", res.Final.Clash,
			"total", res.Final.Total())
	}
	return c.SetCaTrace(work)
}

// Center translates the chain so the centroid of all its atoms is at the
// origin, and returns the translation. When preserve is set, atoms from the
// input are left where they are but still count toward the centroid.
func Center(c *chain.Chain, preserve bool) structure.Coords {
	var all []structure.Coords
	for _, ref := range c.Refs() {
		all = append(all, c.Atom(ref).Coords)
	}
	if len(all) == 0 {
		return structure.Coords{}
	}
	shift := geom.Scale(geom.Centroid(all), -1)
	for i := range c.Residues {
		r := &c.Residues[i]
		for j := range r.Atoms {
			a := &r.Atoms[j]
			if preserve && a.Flags.Has(chain.Initial) {
				continue
			}
			a.Coords = geom.Add(a.Coords, shift)
		}
		r.UpdateCentroid()
	}
	return shift
}
