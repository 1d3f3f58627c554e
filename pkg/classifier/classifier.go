package classifier

import (
	"context"
	"image"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// BreedConfidenceGate is the minimum species confidence required before a
// breed prediction is attempted.
const BreedConfidenceGate = 0.60

// Classifier labels an image as cow, buffalo, or no animal. Implementations
// hold their model weights for the process lifetime and treat them as
// read-only; Classify must be safe for concurrent use.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (types.Classification, error)
}

// Breeds recognized by the breed model, in output index order.
var Breeds = []string{
	"Alambadi", "Amritmahal", "Ayrshire", "Banni", "Bargur",
	"Bhadawari", "Brown_Swiss", "Dangi", "Deoni", "Gir",
	"Guernsey", "Hallikar", "Hariana", "Holstein_Friesian",
	"Jaffrabadi", "Jersey", "Kangayam", "Kankrej", "Kasargod",
	"Kenkatha", "Kherigarh", "Khillari", "Krishna_Valley",
	"Malnad_gidda", "Mehsana", "Murrah", "Nagori", "Nagpuri",
	"Nili_Ravi", "Nimari", "Ongole", "Pulikulam", "Rathi",
	"Red_Dane", "Red_Sindhi", "Sahiwal", "Surti", "Tharparkar",
	"Toda", "Umblachery", "Vechur",
}

// animalTypeFromLabel maps a raw model label onto the known species set.
func animalTypeFromLabel(label string) types.AnimalType {
	switch types.AnimalType(label) {
	case types.AnimalCow:
		return types.AnimalCow
	case types.AnimalBuffalo:
		return types.AnimalBuffalo
	default:
		return types.AnimalNone
	}
}
