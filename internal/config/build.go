package config

import (
	"fmt"

	cattleanalyzer "github.com/agrovision/cattle-analyzer"
	"github.com/agrovision/cattle-analyzer/pkg/analyzer"
	"github.com/agrovision/cattle-analyzer/pkg/classifier"
	"github.com/agrovision/cattle-analyzer/pkg/measure"
	"github.com/agrovision/cattle-analyzer/pkg/score"
	"github.com/agrovision/cattle-analyzer/pkg/types"
	"github.com/agrovision/cattle-analyzer/pkg/vision"
	"github.com/agrovision/cattle-analyzer/pkg/visualize"
)

// BuildPipeline constructs the analysis pipeline from the configuration.
func (c *Config) BuildPipeline(cls classifier.Classifier) *cattleanalyzer.Pipeline {
	scoreConfig := score.DefaultConfig()
	scoreConfig.Weights = score.Weights{
		MorphometricAccuracy:     c.Score.MorphometricWeight,
		ClassificationConfidence: c.Score.ConfidenceWeight,
		BodyStructureQuality:     c.Score.StructureWeight,
	}

	references := make(map[types.AnimalType]float64, len(c.Measure.ReferenceBodyLength))
	for animal, length := range c.Measure.ReferenceBodyLength {
		references[types.AnimalType(animal)] = length
	}

	return cattleanalyzer.NewWithConfig(cls,
		analyzer.DefaultConfig(),
		vision.DetectionConfig{
			BlurSigma:          c.Vision.BlurSigma,
			GradientThreshold:  c.Vision.GradientThreshold,
			MinSilhouetteRatio: c.Vision.MinSilhouetteRatio,
		},
		measure.Config{
			PixelsPerMetre:      c.Measure.PixelsPerMetre,
			ReferenceBodyLength: references,
		},
		scoreConfig,
		visualize.Config{
			MarkerRadius: c.Visualize.MarkerRadius,
			LineStroke:   c.Visualize.LineStroke,
			JPEGQuality:  c.Visualize.JPEGQuality,
			DrawLabels:   c.Visualize.DrawLabels,
		},
	)
}

// BuildClassifier constructs the configured classification backend. The
// returned cleanup function releases model sessions and must be called on
// shutdown.
func (c *Config) BuildClassifier() (classifier.Classifier, func(), error) {
	switch c.Classifier.Backend {
	case "onnx":
		if err := classifier.InitONNXRuntime(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize onnx runtime: %w", err)
		}

		species, err := classifier.NewONNXModel(c.Classifier.ModelPath, c.Classifier.MetadataPath)
		if err != nil {
			classifier.DestroyONNXRuntime()
			return nil, nil, fmt.Errorf("failed to load species model: %w", err)
		}

		var breed *classifier.ONNXModel
		if c.Classifier.BreedModelPath != "" && c.Classifier.BreedMetadataPath != "" {
			breed, err = classifier.NewONNXModel(c.Classifier.BreedModelPath, c.Classifier.BreedMetadataPath)
			if err != nil {
				species.Close()
				classifier.DestroyONNXRuntime()
				return nil, nil, fmt.Errorf("failed to load breed model: %w", err)
			}
		}

		onnx := classifier.NewONNXClassifier(species, breed)
		cleanup := func() {
			onnx.Close()
			classifier.DestroyONNXRuntime()
		}
		return onnx, cleanup, nil

	case "ollama":
		ollama, err := classifier.NewOllamaClassifier(c.Classifier.OllamaURL, c.Classifier.OllamaModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create ollama classifier: %w", err)
		}
		return ollama, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown classifier backend: %s", c.Classifier.Backend)
	}
}
