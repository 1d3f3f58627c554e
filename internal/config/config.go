package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Classifier ClassifierConfig `json:"classifier"`
	Vision     VisionConfig     `json:"vision"`
	Measure    MeasureConfig    `json:"measure"`
	Score      ScoreConfig      `json:"score"`
	Visualize  VisualizeConfig  `json:"visualize"`
}

// ServerConfig holds configuration for the HTTP server
type ServerConfig struct {
	Addr            string `json:"addr"`
	MaxUploadMBytes int64  `json:"max_upload_mbytes"`
}

// ClassifierConfig selects and configures the classification backend
type ClassifierConfig struct {
	// Backend is "onnx" or "ollama".
	Backend           string `json:"backend"`
	ModelPath         string `json:"model_path"`
	MetadataPath      string `json:"metadata_path"`
	BreedModelPath    string `json:"breed_model_path"`
	BreedMetadataPath string `json:"breed_metadata_path"`
	OllamaURL         string `json:"ollama_url"`
	OllamaModel       string `json:"ollama_model"`
}

// VisionConfig holds configuration for silhouette detection
type VisionConfig struct {
	BlurSigma          float64 `json:"blur_sigma"`
	GradientThreshold  float64 `json:"gradient_threshold"`
	MinSilhouetteRatio float64 `json:"min_silhouette_ratio"`
}

// MeasureConfig holds configuration for measurement conversion
type MeasureConfig struct {
	PixelsPerMetre      float64            `json:"pixels_per_metre"`
	ReferenceBodyLength map[string]float64 `json:"reference_body_length"`
}

// ScoreConfig holds the ATC component weights
type ScoreConfig struct {
	MorphometricWeight float64 `json:"morphometric_weight"`
	ConfidenceWeight   float64 `json:"confidence_weight"`
	StructureWeight    float64 `json:"structure_weight"`
}

// VisualizeConfig holds configuration for the annotated output image
type VisualizeConfig struct {
	MarkerRadius int  `json:"marker_radius"`
	LineStroke   int  `json:"line_stroke"`
	JPEGQuality  int  `json:"jpeg_quality"`
	DrawLabels   bool `json:"draw_labels"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MaxUploadMBytes: 10,
		},
		Classifier: ClassifierConfig{
			Backend:           "onnx",
			ModelPath:         "models/cattle_classifier.onnx",
			MetadataPath:      "models/cattle_classifier.json",
			BreedModelPath:    "models/breed_classifier.onnx",
			BreedMetadataPath: "models/breed_classifier.json",
			OllamaURL:         "http://localhost:11434",
			OllamaModel:       "minicpm-v",
		},
		Vision: VisionConfig{
			BlurSigma:          1.5,
			GradientThreshold:  0.08,
			MinSilhouetteRatio: 0.005,
		},
		Measure: MeasureConfig{
			PixelsPerMetre: 100.0,
			ReferenceBodyLength: map[string]float64{
				"Cow":     1.55,
				"Buffalo": 1.40,
			},
		},
		Score: ScoreConfig{
			MorphometricWeight: 1.0 / 3.0,
			ConfidenceWeight:   1.0 / 3.0,
			StructureWeight:    1.0 / 3.0,
		},
		Visualize: VisualizeConfig{
			MarkerRadius: 5,
			LineStroke:   3,
			JPEGQuality:  90,
			DrawLabels:   true,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Server.MaxUploadMBytes < 1 {
		return fmt.Errorf("server.max_upload_mbytes must be positive")
	}

	switch c.Classifier.Backend {
	case "onnx":
		if c.Classifier.ModelPath == "" || c.Classifier.MetadataPath == "" {
			return fmt.Errorf("classifier.model_path and classifier.metadata_path are required for the onnx backend")
		}
	case "ollama":
		if c.Classifier.OllamaURL == "" || c.Classifier.OllamaModel == "" {
			return fmt.Errorf("classifier.ollama_url and classifier.ollama_model are required for the ollama backend")
		}
	default:
		return fmt.Errorf("classifier.backend must be onnx or ollama")
	}

	if c.Vision.GradientThreshold < 0 || c.Vision.GradientThreshold > 1 {
		return fmt.Errorf("vision.gradient_threshold must be between 0 and 1")
	}

	if c.Vision.MinSilhouetteRatio < 0 || c.Vision.MinSilhouetteRatio > 1 {
		return fmt.Errorf("vision.min_silhouette_ratio must be between 0 and 1")
	}

	if c.Measure.PixelsPerMetre <= 0 {
		return fmt.Errorf("measure.pixels_per_metre must be positive")
	}

	weightSum := c.Score.MorphometricWeight + c.Score.ConfidenceWeight + c.Score.StructureWeight
	if weightSum < 0.99 || weightSum > 1.01 {
		return fmt.Errorf("score weights must sum to 1")
	}

	if c.Visualize.JPEGQuality < 1 || c.Visualize.JPEGQuality > 100 {
		return fmt.Errorf("visualize.jpeg_quality must be between 1 and 100")
	}

	return nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMBytes << 20
}
