package classifier

import (
	"context"
	"image"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// ONNXClassifier classifies species with an ONNX model, and breed with an
// optional second model when the species confidence clears the gate.
type ONNXClassifier struct {
	species *ONNXModel
	breed   *ONNXModel
}

// NewONNXClassifier creates a classifier from a species model and an
// optional breed model (nil to disable breed prediction).
func NewONNXClassifier(species, breed *ONNXModel) *ONNXClassifier {
	return &ONNXClassifier{species: species, breed: breed}
}

// Classify labels the image, adding a breed prediction when the species
// confidence is at least BreedConfidenceGate.
func (c *ONNXClassifier) Classify(ctx context.Context, img image.Image) (types.Classification, error) {
	if err := ctx.Err(); err != nil {
		return types.Classification{}, err
	}

	label, confidence, err := c.species.Predict(img)
	if err != nil {
		return types.Classification{}, err
	}

	cls := types.Classification{
		Type:       animalTypeFromLabel(label),
		Confidence: confidence,
	}

	if c.breed != nil && cls.Type != types.AnimalNone && cls.Confidence >= BreedConfidenceGate {
		breed, breedConfidence, err := c.breed.Predict(img)
		if err == nil {
			cls.Breed = breed
			cls.BreedConfidence = breedConfidence
		}
		// A breed failure never blocks the species result.
	}

	return cls, nil
}

// Close releases both model sessions.
func (c *ONNXClassifier) Close() {
	if c.species != nil {
		c.species.Close()
	}
	if c.breed != nil {
		c.breed.Close()
	}
}
