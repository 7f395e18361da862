package reconstruct

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/TuftsBCB/backbone/caopt"
	"github.com/TuftsBCB/backbone/grid"
	"github.com/TuftsBCB/backbone/hbond"
	"github.com/TuftsBCB/backbone/rmsd"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a reconstruction. It is read only once a
// run starts.
type Config struct {
	RebuildBackbone      bool `yaml:"rebuild_backbone"`
	OptimizeHBonds       bool `yaml:"optimize_hbonds"`
	OptimizeCalpha       bool `yaml:"optimize_calpha"`
	RandomizeCalphaStart bool `yaml:"randomize_calpha_start"`
	MaxCalphaIterations  int  `yaml:"max_calpha_iterations" validate:"gt=0"`
	TreatCisProline      bool `yaml:"treat_cis_proline"`
	PreserveInitialAtoms bool `yaml:"preserve_initial_atoms"`
	RebuildHydrogens     bool `yaml:"rebuild_hydrogens"`
	CenterChain          bool `yaml:"center_chain"`

	Bond       Target `yaml:"bond"`
	CisProline Target `yaml:"cis_proline"`
	Force      Force  `yaml:"force"`

	AnchorRadius  float64 `yaml:"anchor_radius" validate:"gte=0"`
	ClashDistance float64 `yaml:"clash_distance" validate:"gte=0"`
	AngleMin      float64 `yaml:"angle_min" validate:"gte=0,lte=180"`
	AngleMax      float64 `yaml:"angle_max" validate:"gtfield=AngleMin,lte=180"`

	// Seed seeds the optimizer jitter and the random start.
	Seed int64 `yaml:"seed"`

	// Superposition is "iterative" or "svd".
	Superposition string `yaml:"superposition" validate:"oneof=iterative alternating svd kabsch"`

	HBondWeakThreshold float64 `yaml:"hbond_weak_threshold"`
	HBondMaxRotation   float64 `yaml:"hbond_max_rotation" validate:"gte=0,lte=180"`
	HBondRotationStep  float64 `yaml:"hbond_rotation_step" validate:"gt=0"`
}

// Target is a distance with the tolerance around it.
type Target struct {
	Target    float64 `yaml:"target" validate:"gt=0"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
}

// Force holds the force constants of the Cα energy.
type Force struct {
	Bond   float64 `yaml:"bond" validate:"gte=0"`
	Angle  float64 `yaml:"angle" validate:"gte=0"`
	Anchor float64 `yaml:"anchor" validate:"gte=0"`
	Clash  float64 `yaml:"clash" validate:"gte=0"`
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	p := caopt.DefaultParams()
	h := hbond.DefaultOptions()
	return Config{
		RebuildBackbone:      true,
		OptimizeCalpha:       true,
		MaxCalphaIterations:  p.MaxIterations,
		PreserveInitialAtoms: true,

		Bond:       Target{p.BondTarget, p.BondTolerance},
		CisProline: Target{p.CisProTarget, p.CisProTolerance},
		Force: Force{
			Bond:   p.BondK,
			Angle:  p.AngleK,
			Anchor: p.AnchorK,
			Clash:  p.ClashK,
		},
		AnchorRadius:  p.AnchorRadius,
		ClashDistance: p.ClashDistance,
		AngleMin:      p.AngleMin,
		AngleMax:      p.AngleMax,

		Seed:          1,
		Superposition: rmsd.Alternating.String(),

		HBondWeakThreshold: h.Weak,
		HBondMaxRotation:   h.MaxRotation,
		HBondRotationStep:  h.Step,
	}
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (cfg Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ParseConfig decodes YAML over the defaults. Keys that are not present
// keep their default values. Unknown keys are an error.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := decodeStrict(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeStrict(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Params returns the Cα optimizer parameters.
func (cfg Config) Params() caopt.Params {
	return caopt.Params{
		BondTarget:      cfg.Bond.Target,
		BondTolerance:   cfg.Bond.Tolerance,
		CisProTarget:    cfg.CisProline.Target,
		CisProTolerance: cfg.CisProline.Tolerance,
		BondK:           cfg.Force.Bond,
		AngleK:          cfg.Force.Angle,
		AnchorK:         cfg.Force.Anchor,
		ClashK:          cfg.Force.Clash,
		AnchorRadius:    cfg.AnchorRadius,
		ClashDistance:   cfg.ClashDistance,
		AngleMin:        cfg.AngleMin,
		AngleMax:        cfg.AngleMax,
		MaxIterations:   cfg.MaxCalphaIterations,
	}
}

// HBondOptions returns the refiner options.
func (cfg Config) HBondOptions() hbond.Options {
	return hbond.Options{
		Weak:        cfg.HBondWeakThreshold,
		MaxRotation: cfg.HBondMaxRotation,
		Step:        cfg.HBondRotationStep,
		Cell:        grid.DefaultCell,
		Preserve:    cfg.PreserveInitialAtoms,
	}
}

// Method returns the superposition solver. The configuration must be valid.
func (cfg Config) Method() rmsd.Method {
	m, err := rmsd.ParseMethod(cfg.Superposition)
	if err != nil {
		return rmsd.Alternating
	}
	return m
}
