package match

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// Dimension names for the weight vector and sub-score maps.
const (
	DimValues        = "values"
	DimCauses        = "causes"
	DimSkills        = "skills"
	DimExperience    = "experience"
	DimVerifications = "verifications"
	DimAvailability  = "availability"
	DimLocation      = "location"
	DimCompensation  = "compensation"
	DimLanguage      = "language"
)

// dimensions is the canonical ordering of the dimension set.
var dimensions = []string{
	DimValues,
	DimCauses,
	DimSkills,
	DimExperience,
	DimVerifications,
	DimAvailability,
	DimLocation,
	DimCompensation,
	DimLanguage,
}

// Dimensions returns a copy of the full dimension set in canonical order.
func Dimensions() []string {
	out := make([]string, len(dimensions))
	copy(out, dimensions)
	return out
}

// KnownDimension reports whether name is a valid dimension.
func KnownDimension(name string) bool {
	for _, d := range dimensions {
		if d == name {
			return true
		}
	}
	return false
}

// Weights maps dimension names to non-negative weights.
type Weights map[string]float64

// Weight validation errors.
var (
	ErrUnknownPreset    = errors.New("unknown weight preset")
	ErrUnknownDimension = errors.New("unknown dimension in weight map")
	ErrNegativeWeight   = errors.New("weights must be non-negative")
)

// Preset names.
const (
	PresetMissionFirst = "mission-first"
	PresetSkillsFirst  = "skills-first"
	PresetBalanced     = "balanced"
)

// Presets maps preset names to full weight vectors.
type Presets map[string]Weights

// DefaultPresets returns the built-in weight presets. Each preset is a full
// vector over the dimension set; vectors are normalized at resolution time.
func DefaultPresets() Presets {
	return Presets{
		PresetMissionFirst: Weights{
			DimValues:        0.35,
			DimCauses:        0.25,
			DimSkills:        0.20,
			DimExperience:    0.10,
			DimVerifications: 0.03,
			DimAvailability:  0.02,
			DimLocation:      0.02,
			DimCompensation:  0.02,
			DimLanguage:      0.01,
		},
		PresetSkillsFirst: Weights{
			DimValues:        0.10,
			DimCauses:        0.05,
			DimSkills:        0.40,
			DimExperience:    0.25,
			DimVerifications: 0.08,
			DimAvailability:  0.05,
			DimLocation:      0.03,
			DimCompensation:  0.02,
			DimLanguage:      0.02,
		},
		PresetBalanced: Weights{
			DimValues:        0.20,
			DimCauses:        0.15,
			DimSkills:        0.25,
			DimExperience:    0.15,
			DimVerifications: 0.08,
			DimAvailability:  0.07,
			DimLocation:      0.05,
			DimCompensation:  0.03,
			DimLanguage:      0.02,
		},
	}
}

// Get returns a copy of the named preset.
func (p Presets) Get(name string) (Weights, bool) {
	preset, ok := p[name]
	if !ok {
		return nil, false
	}
	out := make(Weights, len(preset))
	for d, w := range preset {
		out[d] = w
	}
	return out, true
}

// ValidateWeights checks a client-supplied weight map for unknown dimensions
// and negative values, returning field-level detail.
func ValidateWeights(w Weights) error {
	for dim, weight := range w {
		if !KnownDimension(dim) {
			return fmt.Errorf("weight %q: %w", dim, ErrUnknownDimension)
		}
		if weight < 0 {
			return fmt.Errorf("weight %q is %v: %w", dim, weight, ErrNegativeWeight)
		}
	}
	return nil
}

// NormalizeWeights completes a partial weight map over the full dimension
// set (missing dimensions default to 0) and normalizes it to sum to 1.
// An all-zero map yields a uniform distribution across all dimensions.
// The input is never mutated.
func NormalizeWeights(w Weights) Weights {
	var sum float64
	for _, d := range dimensions {
		sum += w[d]
	}

	out := make(Weights, len(dimensions))
	if sum == 0 {
		uniform := 1.0 / float64(len(dimensions))
		for _, d := range dimensions {
			out[d] = uniform
		}
		return out
	}

	for _, d := range dimensions {
		out[d] = w[d] / sum
	}
	return out
}

// Resolve turns request inputs into a complete normalized weight vector.
// Precedence: explicit weights, then named mode, then the profile's stored
// weights, then the balanced preset. Unknown presets and malformed weight
// maps are surfaced as validation errors.
func (p Presets) Resolve(custom Weights, mode string, profileWeights Weights) (Weights, error) {
	if len(custom) > 0 {
		if err := ValidateWeights(custom); err != nil {
			return nil, err
		}
		return NormalizeWeights(custom), nil
	}

	if mode != "" {
		preset, ok := p.Get(mode)
		if !ok {
			return nil, fmt.Errorf("preset %q: %w", mode, ErrUnknownPreset)
		}
		return NormalizeWeights(preset), nil
	}

	if len(profileWeights) > 0 {
		if err := ValidateWeights(profileWeights); err == nil {
			return NormalizeWeights(profileWeights), nil
		}
		// Stored weights are advisory; fall through to the default preset
		// rather than failing the request on stale profile data.
		slog.Warn("ignoring invalid stored profile weights")
	}

	preset, _ := p.Get(PresetBalanced)
	return NormalizeWeights(preset), nil
}

// calibrationConfig is the JSON structure of the preset calibration file.
type calibrationConfig struct {
	Version string             `json:"version"`
	Presets map[string]Weights `json:"presets"`
}

// LoadCalibration loads preset weight overrides from a JSON calibration
// file and merges them over the built-in presets. Only known presets and
// dimensions with non-zero override values are applied. On any error the
// built-in presets are returned alongside the error so callers degrade
// gracefully.
func LoadCalibration(filePath string) (Presets, error) {
	defaults := DefaultPresets()
	if filePath == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using built-in presets",
			"path", filePath,
			"error", err)
		return defaults, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config calibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using built-in presets",
			"path", filePath,
			"error", err)
		return defaults, fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(defaults, config.Presets)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights over base presets. Unknown
// preset names and dimensions are skipped with a warning; zero values in
// the override leave the base value in place so partial files work.
func MergeCalibration(base Presets, overrides map[string]Weights) Presets {
	merged := make(Presets, len(base))
	for name, preset := range base {
		w := make(Weights, len(preset))
		for d, v := range preset {
			w[d] = v
		}
		merged[name] = w
	}

	for name, override := range overrides {
		preset, ok := merged[name]
		if !ok {
			slog.Warn("calibration file references unknown preset", "preset", name)
			continue
		}
		for dim, v := range override {
			if !KnownDimension(dim) {
				slog.Warn("calibration file references unknown dimension",
					"preset", name,
					"dimension", dim)
				continue
			}
			if v != 0 {
				preset[dim] = v
			}
		}
	}

	return merged
}

// logCalibrationOverrides logs which preset weights differ from defaults.
func logCalibrationOverrides(defaults, loaded Presets) {
	var overrides []string
	for name, preset := range loaded {
		base := defaults[name]
		for _, dim := range dimensions {
			if math.Abs(preset[dim]-base[dim]) > 1e-12 {
				overrides = append(overrides, fmt.Sprintf("%s.%s: %.3f -> %.3f",
					name, dim, base[dim], preset[dim]))
			}
		}
	}

	if len(overrides) > 0 {
		slog.Info("loaded match preset calibration with overrides", "overrides", overrides)
	} else {
		slog.Info("loaded match preset calibration (using all defaults)")
	}
}
