package score

import (
	"strings"
	"testing"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// goodMeasurements returns a measurement set that sits inside the expected
// cow reference ranges.
func goodMeasurements() types.Measurements {
	return types.Measurements{
		BodyLength:         types.Metric{Value: 1.55, Valid: true},
		HeightAtWithers:    types.Metric{Value: 1.30, Valid: true},
		ChestWidth:         types.Metric{Value: 0.20, Valid: true},
		ChestDepth:         types.Metric{Value: 0.75, Valid: true},
		RumpAngle:          types.Metric{Value: 11.3, Valid: true},
		BodyConditionScore: types.Metric{Value: 3.0, Valid: true},
	}
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  types.Level
	}{
		{100, types.LevelExcellent},
		{85, types.LevelExcellent},
		{84.9, types.LevelGood},
		{70, types.LevelGood},
		{69.9, types.LevelFair},
		{55, types.LevelFair},
		{54.9, types.LevelPoor},
		{0, types.LevelPoor},
	}

	for _, test := range tests {
		if got := LevelForScore(test.score); got != test.want {
			t.Errorf("LevelForScore(%.1f) = %s, want %s", test.score, got, test.want)
		}
	}
}

func TestScoreGoodMeasurements(t *testing.T) {
	scorer := New()
	cls := types.Classification{Type: types.AnimalCow, Confidence: 0.95}

	atc := scorer.Score(goodMeasurements(), cls)

	if atc.Components[ComponentMorphometricAccuracy] != 100 {
		t.Errorf("Expected morphometric accuracy 100, got %.1f", atc.Components[ComponentMorphometricAccuracy])
	}
	if atc.Components[ComponentClassificationConfidence] != 95 {
		t.Errorf("Expected confidence component 95, got %.1f", atc.Components[ComponentClassificationConfidence])
	}
	if atc.Components[ComponentBodyStructureQuality] != 100 {
		t.Errorf("Expected structure quality 100, got %.1f", atc.Components[ComponentBodyStructureQuality])
	}

	if atc.Level != types.LevelExcellent {
		t.Errorf("Expected Excellent level, got %s (score %.2f)", atc.Level, atc.Overall)
	}
	if atc.Overall < 98 || atc.Overall > 99 {
		t.Errorf("Expected overall near 98.3, got %.2f", atc.Overall)
	}
	if len(atc.Recommendations) == 0 {
		t.Error("Expected at least one recommendation")
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := New()

	// Out-of-range confidence is clamped, never amplified.
	atc := scorer.Score(goodMeasurements(), types.Classification{Type: types.AnimalCow, Confidence: 1.5})
	if atc.Overall > 100 {
		t.Errorf("Overall score exceeds 100: %.2f", atc.Overall)
	}
	if atc.Components[ComponentClassificationConfidence] != 100 {
		t.Errorf("Expected clamped confidence component 100, got %.1f", atc.Components[ComponentClassificationConfidence])
	}

	atc = scorer.Score(types.Measurements{}, types.Classification{Type: types.AnimalCow, Confidence: -0.5})
	if atc.Overall < 0 {
		t.Errorf("Overall score below 0: %.2f", atc.Overall)
	}
	if atc.Components[ComponentClassificationConfidence] != 0 {
		t.Errorf("Expected clamped confidence component 0, got %.1f", atc.Components[ComponentClassificationConfidence])
	}
}

func TestScoreMissingMeasurements(t *testing.T) {
	scorer := New()
	cls := types.Classification{Type: types.AnimalCow, Confidence: 0.5}

	atc := scorer.Score(types.Measurements{}, cls)

	// All reduced defaults: (50 + 50 + 50) / 3.
	if atc.Overall != 50 {
		t.Errorf("Expected overall 50 for missing measurements, got %.2f", atc.Overall)
	}
	if atc.Level != types.LevelPoor {
		t.Errorf("Expected Poor level, got %s", atc.Level)
	}
}

func TestScoreUnknownSpecies(t *testing.T) {
	scorer := New()
	atc := scorer.Score(goodMeasurements(), types.Classification{Type: types.AnimalNone, Confidence: 0.9})

	// No reference ranges for the species: morphometric accuracy falls back.
	if atc.Components[ComponentMorphometricAccuracy] != 50 {
		t.Errorf("Expected fallback morphometric accuracy 50, got %.1f", atc.Components[ComponentMorphometricAccuracy])
	}
}

func TestRangeScore(t *testing.T) {
	ref := Range{Min: 1.0, Max: 2.0}

	if got := rangeScore(1.5, ref); got != 100 {
		t.Errorf("Expected 100 inside range, got %.1f", got)
	}
	if got := rangeScore(1.0, ref); got != 100 {
		t.Errorf("Expected 100 at lower bound, got %.1f", got)
	}
	if got := rangeScore(2.5, ref); got != 50 {
		t.Errorf("Expected 50 half a span above, got %.1f", got)
	}
	if got := rangeScore(0.0, ref); got != 0 {
		t.Errorf("Expected 0 a full span below, got %.1f", got)
	}
	if got := rangeScore(1.5, Range{Min: 2, Max: 2}); got != 0 {
		t.Errorf("Expected 0 for empty range, got %.1f", got)
	}
}

func TestRecommendationsLowestComponent(t *testing.T) {
	components := map[string]float64{
		ComponentMorphometricAccuracy:     90,
		ComponentClassificationConfidence: 30,
		ComponentBodyStructureQuality:     85,
	}

	recs := recommendations(components, 68)
	if len(recs) < 2 {
		t.Fatalf("Expected at least two recommendations, got %d", len(recs))
	}
	if recs[0] != componentAdvice[ComponentClassificationConfidence] {
		t.Errorf("Expected lowest-component advice first, got %q", recs[0])
	}
	if recs[len(recs)-1] != levelAdvice[types.LevelFair] {
		t.Errorf("Expected level summary last, got %q", recs[len(recs)-1])
	}
}

func TestRecommendationsMultipleWeakComponents(t *testing.T) {
	components := map[string]float64{
		ComponentMorphometricAccuracy:     40,
		ComponentClassificationConfidence: 30,
		ComponentBodyStructureQuality:     90,
	}

	recs := recommendations(components, 53)
	// Lowest component, second component under 60, level summary.
	if len(recs) != 3 {
		t.Fatalf("Expected 3 recommendations, got %d: %v", len(recs), recs)
	}
	if recs[1] != componentAdvice[ComponentMorphometricAccuracy] {
		t.Errorf("Expected morphometric advice second, got %q", recs[1])
	}
}

func TestBuildReport(t *testing.T) {
	cls := types.Classification{Type: types.AnimalCow, Confidence: 0.92, Breed: "Gir"}
	report := BuildReport(goodMeasurements(), cls)

	for _, want := range []string{
		"BODY STRUCTURE ANALYSIS REPORT",
		"Type: Cow",
		"Breed: Gir",
		"Confidence: 92.0%",
		"Body Length: 1.55 meters",
		"Height at Withers: 1.30 meters",
		"Rump Angle: 11.3 degrees",
		"Body Condition Score: 3.0/5.0",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("Report missing %q", want)
		}
	}

	if !strings.Contains(report, "estimates") {
		t.Error("Report should carry the estimation disclaimer")
	}
}

func TestBuildReportPartialMeasurements(t *testing.T) {
	m := types.Measurements{
		BodyLength: types.Metric{Value: 1.4, Valid: true},
	}
	report := BuildReport(m, types.Classification{Type: types.AnimalBuffalo, Confidence: 0.7})

	if !strings.Contains(report, "Body Length: 1.40 meters") {
		t.Error("Report missing available measurement")
	}
	if strings.Contains(report, "Chest Width") {
		t.Error("Report should omit unavailable measurements")
	}
	if !strings.Contains(report, "Breed: Unknown") {
		t.Error("Report should mark missing breed as Unknown")
	}
}

func TestBuildReportNoMeasurements(t *testing.T) {
	report := BuildReport(types.Measurements{}, types.Classification{Type: types.AnimalCow, Confidence: 0.8})
	if !strings.Contains(report, "No measurements available") {
		t.Error("Report should state when no measurements are available")
	}
}
