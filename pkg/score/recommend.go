package score

import "github.com/agrovision/cattle-analyzer/pkg/types"

// Canned advice keyed by the component that scored lowest.
var componentAdvice = map[string]string{
	ComponentMorphometricAccuracy:     "Measurements deviate from the expected range for the species - verify the animal is captured in full side profile at a consistent distance",
	ComponentClassificationConfidence: "Classification confidence is low - retake the image with better lighting and the animal centered in frame",
	ComponentBodyStructureQuality:     "Body structure indicators are outside the normal band - check the animal's stance and reshoot on level ground",
}

// Summary line per overall level.
var levelAdvice = map[types.Level]string{
	types.LevelExcellent: "Excellent ATC score - high confidence in classification accuracy",
	types.LevelGood:      "Good ATC score - classification appears reliable",
	types.LevelFair:      "Fair ATC score - consider additional verification methods",
	types.LevelPoor:      "Low ATC score - recommend retaking the image with better positioning and lighting",
}

// recommendations selects advice from the static lists: one line keyed by
// the lowest-scoring component, then lines for any other component under
// 60, and a closing summary for the overall level.
func recommendations(components map[string]float64, overall float64) []string {
	order := []string{
		ComponentMorphometricAccuracy,
		ComponentClassificationConfidence,
		ComponentBodyStructureQuality,
	}

	lowest := order[0]
	for _, name := range order[1:] {
		if components[name] < components[lowest] {
			lowest = name
		}
	}

	recs := []string{componentAdvice[lowest]}
	for _, name := range order {
		if name != lowest && components[name] < 60 {
			recs = append(recs, componentAdvice[name])
		}
	}
	recs = append(recs, levelAdvice[LevelForScore(overall)])
	return recs
}
