package measure

import (
	"math"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// Converter turns keypoint pixel geometry into metric body measurements.
//
// The pixel-to-metre scale comes either from a fixed assumed value or from
// the detected species' assumed average body length. There is no in-image
// calibration target; measurements are estimates and documented as such.
type Converter struct {
	config Config
}

// Config holds configuration for measurement conversion
type Config struct {
	// PixelsPerMetre is the fallback scale when no species estimate is
	// possible.
	PixelsPerMetre float64
	// ReferenceBodyLength maps a species to its assumed average body
	// length in metres, used to estimate the scale from the nose-rump
	// pixel distance.
	ReferenceBodyLength map[types.AnimalType]float64
}

// New creates a new Converter with default configuration
func New() *Converter {
	return &Converter{
		config: Config{
			PixelsPerMetre: 100.0,
			ReferenceBodyLength: map[types.AnimalType]float64{
				types.AnimalCow:     1.55,
				types.AnimalBuffalo: 1.40,
			},
		},
	}
}

// NewWithConfig creates a new Converter with custom configuration
func NewWithConfig(config Config) *Converter {
	return &Converter{config: config}
}

// EstimateScale derives pixels-per-metre from the nose-rump pixel distance
// and the assumed body length for the species. Falls back to the configured
// fixed scale when the species is unknown or the geometry is degenerate.
func (c *Converter) EstimateScale(keypoints types.KeypointSet, animal types.AnimalType) float64 {
	refLength, ok := c.config.ReferenceBodyLength[animal]
	if !ok || refLength <= 0 {
		return c.config.PixelsPerMetre
	}

	nose, hasNose := keypoints.Get(types.KeypointNose)
	rump, hasRump := keypoints.Get(types.KeypointRump)
	if !hasNose || !hasRump {
		return c.config.PixelsPerMetre
	}

	px := distance(nose, rump)
	if px <= 0 {
		return c.config.PixelsPerMetre
	}
	return px / refLength
}

// Convert computes the measurement set from keypoints at the given
// pixels-per-metre scale. Measurements whose keypoints are missing, or
// whose geometry would be degenerate, are marked invalid rather than
// guessed.
func (c *Converter) Convert(keypoints types.KeypointSet, scale float64) types.Measurements {
	var m types.Measurements
	if len(keypoints) == 0 || scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return m
	}

	nose, hasNose := keypoints.Get(types.KeypointNose)
	withers, hasWithers := keypoints.Get(types.KeypointWithers)
	rump, hasRump := keypoints.Get(types.KeypointRump)
	shoulder, hasShoulder := keypoints.Get(types.KeypointShoulder)
	chestFront, hasChestFront := keypoints.Get(types.KeypointChestFront)
	chestDeep, hasChestDeep := keypoints.Get(types.KeypointChestDeep)
	frontHoof, hasFrontHoof := keypoints.Get(types.KeypointFrontHoof)

	// Body length: nose to rump
	if hasNose && hasRump {
		m.BodyLength = metre(distance(nose, rump), scale)
	}

	// Height at withers: vertical withers to front hoof
	if hasWithers && hasFrontHoof {
		m.HeightAtWithers = metre(math.Abs(float64(withers.Y-frontHoof.Y)), scale)
	}

	// Chest width: shoulder to chest front
	if hasShoulder && hasChestFront {
		m.ChestWidth = metre(distance(shoulder, chestFront), scale)
	}

	// Chest depth: vertical withers to deepest chest point
	if hasWithers && hasChestDeep {
		m.ChestDepth = metre(math.Abs(float64(withers.Y-chestDeep.Y)), scale)
	}

	// Rump angle: signed slope of the withers-rump topline, in degrees.
	// Requires the rump to lie behind the withers; otherwise the geometry
	// is degenerate and the angle is omitted.
	if hasWithers && hasRump {
		dx := float64(rump.X - withers.X)
		dy := float64(rump.Y - withers.Y)
		if dx > 0 {
			angle := math.Atan2(dy, dx) * 180 / math.Pi
			if !math.IsNaN(angle) && angle >= -90 && angle <= 90 {
				m.RumpAngle = types.Metric{Value: angle, Valid: true}
			}
		}
	}

	m.BodyConditionScore = bodyCondition(m)

	return m
}

// bodyCondition maps the chest width to body length ratio onto a 1-5 scale
// via fixed breakpoints. Requires both measurements; never guessed.
func bodyCondition(m types.Measurements) types.Metric {
	if !m.ChestWidth.Valid || !m.BodyLength.Valid || m.BodyLength.Value <= 0 {
		return types.Metric{}
	}

	ratio := m.ChestWidth.Value / m.BodyLength.Value
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return types.Metric{}
	}

	var score float64
	switch {
	case ratio < 0.12:
		score = 2.0 // thin
	case ratio < 0.16:
		score = 3.0 // moderate
	case ratio < 0.20:
		score = 4.0 // good
	default:
		score = 4.5 // very good
	}
	return types.Metric{Value: score, Valid: true}
}

// metre converts a pixel distance to metres, dropping non-positive or
// non-finite results.
func metre(pixels, scale float64) types.Metric {
	v := pixels / scale
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return types.Metric{}
	}
	return types.Metric{Value: v, Valid: true}
}

func distance(a, b types.Keypoint) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}
