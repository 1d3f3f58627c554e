package score

import (
	"math"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// ATC score component names.
const (
	ComponentMorphometricAccuracy     = "morphometric_accuracy"
	ComponentClassificationConfidence = "classification_confidence"
	ComponentBodyStructureQuality     = "body_structure_quality"
)

// Scorer computes the composite ATC quality score from a measurement set
// and the upstream classification confidence. It keeps no state between
// calls; the same inputs always yield the same score.
type Scorer struct {
	config Config
}

// Config holds configuration for ATC scoring
type Config struct {
	Weights    Weights
	References map[types.AnimalType]ReferenceRanges
	// RumpAngleNormal is the band of topline slopes (degrees, absolute)
	// considered anatomically normal.
	RumpAngleNormal Range
}

// Weights are the component weights for the overall score. They should sum
// to 1.
type Weights struct {
	MorphometricAccuracy     float64
	ClassificationConfidence float64
	BodyStructureQuality     float64
}

// Range is an inclusive expected interval for a measurement.
type Range struct {
	Min float64
	Max float64
}

// ReferenceRanges are the expected measurement intervals for a species, in
// metres.
type ReferenceRanges struct {
	BodyLength      Range
	HeightAtWithers Range
	ChestWidth      Range
	ChestDepth      Range
}

// New creates a new Scorer with default configuration
func New() *Scorer {
	return &Scorer{config: DefaultConfig()}
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			MorphometricAccuracy:     1.0 / 3.0,
			ClassificationConfidence: 1.0 / 3.0,
			BodyStructureQuality:     1.0 / 3.0,
		},
		References: map[types.AnimalType]ReferenceRanges{
			types.AnimalCow: {
				BodyLength:      Range{1.20, 1.90},
				HeightAtWithers: Range{1.10, 1.55},
				ChestWidth:      Range{0.10, 0.45},
				ChestDepth:      Range{0.55, 0.95},
			},
			types.AnimalBuffalo: {
				BodyLength:      Range{1.10, 1.80},
				HeightAtWithers: Range{1.05, 1.50},
				ChestWidth:      Range{0.10, 0.45},
				ChestDepth:      Range{0.55, 0.95},
			},
		},
		RumpAngleNormal: Range{0, 35},
	}
}

// NewWithConfig creates a new Scorer with custom configuration
func NewWithConfig(config Config) *Scorer {
	return &Scorer{config: config}
}

// Score computes the ATC score for a measurement set and classification.
// Missing measurements reduce the affected component; they never cause a
// failure.
func (s *Scorer) Score(m types.Measurements, cls types.Classification) types.ATCScore {
	components := map[string]float64{
		ComponentMorphometricAccuracy:     s.morphometricAccuracy(m, cls.Type),
		ComponentClassificationConfidence: clamp(cls.Confidence, 0, 1) * 100,
		ComponentBodyStructureQuality:     s.bodyStructureQuality(m),
	}

	overall := components[ComponentMorphometricAccuracy]*s.config.Weights.MorphometricAccuracy +
		components[ComponentClassificationConfidence]*s.config.Weights.ClassificationConfidence +
		components[ComponentBodyStructureQuality]*s.config.Weights.BodyStructureQuality
	overall = clamp(overall, 0, 100)

	return types.ATCScore{
		Overall:         round2(overall),
		Level:           LevelForScore(overall),
		Components:      roundComponents(components),
		Recommendations: recommendations(components, overall),
	}
}

// LevelForScore maps an overall score onto its qualitative level using
// fixed breakpoints.
func LevelForScore(overall float64) types.Level {
	switch {
	case overall >= 85:
		return types.LevelExcellent
	case overall >= 70:
		return types.LevelGood
	case overall >= 55:
		return types.LevelFair
	default:
		return types.LevelPoor
	}
}

// morphometricAccuracy scores how close each available measurement falls to
// the expected reference range for the species, penalizing proportionally
// to the deviation. Unavailable measurements contribute a reduced default.
func (s *Scorer) morphometricAccuracy(m types.Measurements, animal types.AnimalType) float64 {
	refs, ok := s.config.References[animal]
	if !ok {
		return 50
	}

	checks := []struct {
		metric types.Metric
		ref    Range
	}{
		{m.BodyLength, refs.BodyLength},
		{m.HeightAtWithers, refs.HeightAtWithers},
		{m.ChestWidth, refs.ChestWidth},
		{m.ChestDepth, refs.ChestDepth},
	}

	total := 0.0
	for _, check := range checks {
		if !check.metric.Valid {
			total += 50
			continue
		}
		total += rangeScore(check.metric.Value, check.ref)
	}
	return total / float64(len(checks))
}

// bodyStructureQuality combines the body condition score with rump angle
// normality, weighted 60/40.
func (s *Scorer) bodyStructureQuality(m types.Measurements) float64 {
	bcs := 50.0
	if m.BodyConditionScore.Valid {
		// Ideal condition band on the 1-5 scale.
		bcs = rangeScore(m.BodyConditionScore.Value, Range{2.5, 4.5})
	}

	rump := 50.0
	if m.RumpAngle.Valid {
		rump = rangeScore(math.Abs(m.RumpAngle.Value), s.config.RumpAngleNormal)
	}

	return 0.6*bcs + 0.4*rump
}

// rangeScore returns 100 inside the range and decays proportionally to how
// far outside the value falls, relative to the range span.
func rangeScore(value float64, ref Range) float64 {
	if value >= ref.Min && value <= ref.Max {
		return 100
	}

	span := ref.Max - ref.Min
	if span <= 0 {
		return 0
	}

	var deviation float64
	if value < ref.Min {
		deviation = (ref.Min - value) / span
	} else {
		deviation = (value - ref.Max) / span
	}
	return clamp(100*(1-deviation), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundComponents(components map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(components))
	for name, v := range components {
		out[name] = math.Round(clamp(v, 0, 100)*10) / 10
	}
	return out
}
