/*
Package caopt refines a Cα trace by steepest descent on a simple energy: a
harmonic pseudo bond between consecutive Cα, a flat bottomed pseudo angle
term, a clash term between Cα more than two residues apart and a flat
bottomed anchor keeping every Cα near its starting position.

Every iteration brackets and bisects a step length along the force, then
applies the step with a small random per coordinate jitter that decays as
the optimization proceeds. A jittered step is never accepted if it raises
the energy above the energy the iteration started from, so the energy after
each iteration never increases.
*/
package caopt

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"

	"github.com/TuftsBCB/structure"
)

const (
	initialJitter   = 0.5
	jitterDecay     = 0.75
	jitterCutoff    = 1e-3
	minGradientNorm = 0.01
	minImprovement  = 1e-3
	maxStalls       = 3
	bisectWidth     = 1e-6
	bisectSteps     = 20
	nudge           = 1e-5
)

// StopReason records why an optimization finished.
type StopReason int

const (
	StopMaxIterations StopReason = iota
	StopConverged
	StopStalled
	StopEmpty
)

func (r StopReason) String() string {
	switch r {
	case StopMaxIterations:
		return "iteration limit"
	case StopConverged:
		return "gradient below threshold"
	case StopStalled:
		return "no gradient improvement"
	case StopEmpty:
		return "nothing to optimize"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Result summarizes an optimization.
type Result struct {
	Iterations int
	Initial    Energy
	Final      Energy

	// Energies holds the total energy after every iteration.
	Energies []float64

	// GradientNorm is the RMS force of the last iteration.
	GradientNorm float64
	Stop         StopReason
}

// Observer is called with the trace at the start of every iteration and
// once more with the final trace. The slice must not be retained.
type Observer func(iteration int, trace []structure.Coords)

// Optimizer minimizes the energy of a Cα trace by steepest descent with a
// jittered step.
type Optimizer struct {
	Params   Params
	Rand     *rand.Rand
	Observer Observer
	Logger   *slog.Logger
}

// New returns an optimizer. A nil rng is replaced by one seeded with 1.
func New(p Params, rng *rand.Rand) *Optimizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Optimizer{
		Params: p,
		Rand:   rng,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Evaluate returns the energy of trace. anchors and cisPro may be nil.
// If force is not nil, it receives the force (negative gradient) on every
// Cα and must have the same length as trace.
func (o *Optimizer) Evaluate(
	trace, anchors []structure.Coords,
	cisPro []bool,
	force []structure.Coords,
) Energy {
	s := &system{p: o.Params, anchors: anchors, cisPro: cisPro}
	return s.energy(trace, force)
}

// Optimize moves trace in place. anchors are the positions the anchor term
// refers to; when nil, a copy of trace is used. cisPro[i] marks residue i as
// a cis-proline, which changes the target length of the bond to i-1.
// With Params.MaxIterations at zero the trace is only evaluated.
func (o *Optimizer) Optimize(
	trace, anchors []structure.Coords,
	cisPro []bool,
) Result {
	if anchors == nil {
		anchors = append([]structure.Coords(nil), trace...)
	}
	s := &system{p: o.Params, anchors: anchors, cisPro: cisPro}
	n := len(trace)
	if n == 0 {
		return Result{Stop: StopEmpty}
	}

	force := make([]structure.Coords, n)
	work := make([]structure.Coords, n)
	energyAt := func(alpha float64) float64 {
		for i := range trace {
			work[i] = step(trace[i], force[i], alpha)
		}
		return s.energy(work, nil).Total()
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	res := Result{Initial: s.energy(trace, nil)}
	eps := initialJitter
	lastNorm := 1000.0
	stalls := 0
	for res.Iterations < o.Params.MaxIterations {
		if o.Observer != nil {
			o.Observer(res.Iterations, trace)
		}

		start := s.energy(trace, force)
		alpha, best := o.lineSearch(start.Total(), energyAt)

		// Jittered step, unless it makes things worse.
		for i := range trace {
			work[i] = structure.Coords{
				X: trace[i].X + o.jitter(alpha, eps)*force[i].X,
				Y: trace[i].Y + o.jitter(alpha, eps)*force[i].Y,
				Z: trace[i].Z + o.jitter(alpha, eps)*force[i].Z,
			}
		}
		e := s.energy(work, nil).Total()
		if e > start.Total() {
			for i := range trace {
				work[i] = step(trace[i], force[i], alpha)
			}
			e = best
		}
		copy(trace, work)

		eps *= jitterDecay
		if eps < jitterCutoff {
			eps = 0
		}
		res.Iterations++
		res.Energies = append(res.Energies, e)

		var sum float64
		for _, f := range force {
			sum += f.X*f.X + f.Y*f.Y + f.Z*f.Z
		}
		norm := math.Sqrt(sum / float64(n))
		res.GradientNorm = norm
		if lastNorm-norm < minImprovement {
			stalls++
		} else {
			stalls = 0
		}
		lastNorm = norm

		logger.Debug("calpha iteration",
			"iteration", res.Iterations, "energy", e,
			"step", alpha, "gradient", norm)

		if stalls >= maxStalls {
			res.Stop = StopStalled
			break
		}
		if norm <= minGradientNorm {
			res.Stop = StopConverged
			break
		}
	}
	if o.Observer != nil {
		o.Observer(res.Iterations, trace)
	}
	res.Final = s.energy(trace, nil)
	return res
}

func step(p, f structure.Coords, alpha float64) structure.Coords {
	return structure.Coords{
		X: p.X + alpha*f.X,
		Y: p.Y + alpha*f.Y,
		Z: p.Z + alpha*f.Z,
	}
}

func (o *Optimizer) jitter(alpha, eps float64) float64 {
	if eps == 0 {
		return alpha
	}
	return alpha + alpha*(o.Rand.Float64()-0.5)*eps
}

// lineSearch finds a step length along the force. e0 is the energy at a
// step of 0. The returned energy is never larger than e0.
func (o *Optimizer) lineSearch(e0 float64, energyAt func(float64) float64) (float64, float64) {
	a1, a2, a3 := -1.0, 0.0, 1.0
	e1, e2, e3 := energyAt(a1), e0, energyAt(a3)

	for k := 0; e2 > math.Min(e1, e3) && k < o.Params.MaxIterations; k++ {
		a1 *= 2
		a3 *= 2
		e1, e3 = energyAt(a1), energyAt(a3)
	}

	for k := 0; a3-a1 > bisectWidth && k < bisectSteps; k++ {
		if a3-a2 > a2-a1 {
			a0, ea := sampleAround(0.5*(a2+a3), energyAt)
			if ea < e2 {
				a1, e1 = a2, e2
				a2, e2 = a0, ea
			} else {
				a3, e3 = a0, ea
			}
		} else {
			a0, ea := sampleAround(0.5*(a1+a2), energyAt)
			if ea < e2 {
				a3, e3 = a2, e2
				a2, e2 = a0, ea
			} else {
				a1, e1 = a0, ea
			}
		}
	}
	return a2, e2
}

// sampleAround evaluates a and its two close neighbours and returns the
// best of the three.
func sampleAround(a float64, energyAt func(float64) float64) (float64, float64) {
	best, bestE := a, energyAt(a)
	for _, b := range []float64{a - nudge, a + nudge} {
		if e := energyAt(b); e < bestE {
			best, bestE = b, e
		}
	}
	return best, bestE
}
