package types

// AnimalType is the species label produced by the upstream classifier.
type AnimalType string

// Species labels recognized by the classification models.
const (
	AnimalCow     AnimalType = "Cow"
	AnimalBuffalo AnimalType = "Buffalo"
	AnimalNone    AnimalType = "None"
)

// Classification is the output of the species classifier, optionally
// enriched with a breed prediction when the species confidence permits.
type Classification struct {
	Type            AnimalType `json:"type"`
	Confidence      float64    `json:"confidence"`
	Breed           string     `json:"breed,omitempty"`
	BreedConfidence float64    `json:"breed_confidence,omitempty"`
}

// Anatomical landmark names used throughout the pipeline.
const (
	KeypointNose       = "nose"
	KeypointWithers    = "withers"
	KeypointRump       = "rump"
	KeypointShoulder   = "shoulder"
	KeypointHip        = "hip"
	KeypointChestFront = "chest_front"
	KeypointChestDeep  = "chest_deep"
	KeypointFrontHoof  = "front_hoof"
	KeypointRearHoof   = "rear_hoof"
	KeypointBelly      = "belly"
)

// KeypointNames lists all landmarks in a stable order.
var KeypointNames = []string{
	KeypointNose, KeypointWithers, KeypointRump, KeypointShoulder,
	KeypointHip, KeypointChestFront, KeypointChestDeep,
	KeypointFrontHoof, KeypointRearHoof, KeypointBelly,
}

// Keypoint is an estimated anatomical landmark in image pixel coordinates.
type Keypoint struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// KeypointSet maps landmark names to their estimated positions. A missing
// entry means the landmark could not be located.
type KeypointSet map[string]Keypoint

// Get returns the named keypoint and whether it was detected.
func (s KeypointSet) Get(name string) (Keypoint, bool) {
	kp, ok := s[name]
	return kp, ok
}

// Metric is a single measurement value. Valid is false when the keypoints
// needed to compute it were missing or the geometry was degenerate; an
// invalid metric is reported as unavailable, never as zero.
type Metric struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// Measurements is the fixed record of morphometric values derived from a
// keypoint set. Distances are in metres, rump angle in degrees, body
// condition score on a 1-5 scale.
type Measurements struct {
	BodyLength         Metric `json:"body_length"`
	HeightAtWithers    Metric `json:"height_at_withers"`
	ChestWidth         Metric `json:"chest_width"`
	ChestDepth         Metric `json:"chest_depth"`
	RumpAngle          Metric `json:"rump_angle"`
	BodyConditionScore Metric `json:"body_condition_score"`
}

// Measurement names as they appear in responses and reports.
const (
	MeasureBodyLength         = "body_length"
	MeasureHeightAtWithers    = "height_at_withers"
	MeasureChestWidth         = "chest_width"
	MeasureChestDepth         = "chest_depth"
	MeasureRumpAngle          = "rump_angle"
	MeasureBodyConditionScore = "body_condition_score"
)

// ValidMap returns only the available measurements, keyed by name.
func (m Measurements) ValidMap() map[string]float64 {
	out := make(map[string]float64)
	for name, metric := range map[string]Metric{
		MeasureBodyLength:         m.BodyLength,
		MeasureHeightAtWithers:    m.HeightAtWithers,
		MeasureChestWidth:         m.ChestWidth,
		MeasureChestDepth:         m.ChestDepth,
		MeasureRumpAngle:          m.RumpAngle,
		MeasureBodyConditionScore: m.BodyConditionScore,
	} {
		if metric.Valid {
			out[name] = metric.Value
		}
	}
	return out
}

// Level is the qualitative band for an ATC score.
type Level string

// ATC score levels, from fixed breakpoints on the overall score.
const (
	LevelExcellent Level = "Excellent"
	LevelGood      Level = "Good"
	LevelFair      Level = "Fair"
	LevelPoor      Level = "Poor"
)

// ATCScore is the composite quality rating for an analyzed image.
type ATCScore struct {
	Overall         float64            `json:"overall_score"`
	Level           Level              `json:"level"`
	Components      map[string]float64 `json:"components"`
	Recommendations []string           `json:"recommendations"`
}
