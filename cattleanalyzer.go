// Package cattleanalyzer provides livestock photo analysis: species/breed
// classification, morphometric body measurements, and ATC quality scoring.
//
// The pipeline is a single-pass heuristic computation: the image is
// classified, the animal silhouette is extracted with edge/contour
// heuristics, anatomical keypoints are placed at fixed offsets of the
// silhouette, pixel distances are converted to metric measurements via an
// assumed reference scale, and a composite 0-100 ATC score with
// recommendations is computed. An annotated visualization and a text report
// round out the result.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		cattleanalyzer "github.com/agrovision/cattle-analyzer"
//		"github.com/agrovision/cattle-analyzer/pkg/classifier"
//	)
//
//	func main() {
//		cls, err := classifier.NewOllamaClassifier("http://localhost:11434", "minicpm-v")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		pipeline := cattleanalyzer.New(cls)
//
//		img, err := pipeline.LoadImage("cow.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		report, err := pipeline.Analyze(context.Background(), img)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		fmt.Printf("Type: %s (%.1f%%)\n", report.Classification.Type, report.Classification.Confidence*100)
//		if report.AnimalDetected() {
//			fmt.Printf("ATC score: %.1f (%s)\n", report.Score.Overall, report.Score.Level)
//		}
//	}
//
// The pipeline holds no per-request state: analyzing the same image with
// the same classification always produces the same result.
package cattleanalyzer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/agrovision/cattle-analyzer/pkg/analyzer"
	"github.com/agrovision/cattle-analyzer/pkg/classifier"
	"github.com/agrovision/cattle-analyzer/pkg/measure"
	"github.com/agrovision/cattle-analyzer/pkg/score"
	"github.com/agrovision/cattle-analyzer/pkg/types"
	"github.com/agrovision/cattle-analyzer/pkg/vision"
	"github.com/agrovision/cattle-analyzer/pkg/visualize"
)

// Version of the cattle analyzer library
const Version = "1.0.0"

// Messages attached to reduced reports when analysis is skipped.
const (
	msgNoAnimalClassified = "No animal detected in the image. Body structure analysis skipped."
	msgNoSilhouette       = "Could not detect the animal body structure in the image. Body structure analysis skipped."
)

// Pipeline ties the analysis stages together behind a single entry point.
// It is immutable after construction and safe for concurrent use.
type Pipeline struct {
	images     *analyzer.ImageAnalyzer
	detector   *vision.SilhouetteDetector
	converter  *measure.Converter
	scorer     *score.Scorer
	renderer   *visualize.Renderer
	classifier classifier.Classifier
}

// New creates a Pipeline with default stage configuration.
func New(cls classifier.Classifier) *Pipeline {
	return &Pipeline{
		images:     analyzer.New(),
		detector:   vision.New(),
		converter:  measure.New(),
		scorer:     score.New(),
		renderer:   visualize.New(),
		classifier: cls,
	}
}

// NewWithConfig creates a Pipeline with custom stage configuration.
func NewWithConfig(cls classifier.Classifier, analyzerConfig analyzer.Config, visionConfig vision.DetectionConfig,
	measureConfig measure.Config, scoreConfig score.Config, visualizeConfig visualize.Config) *Pipeline {
	return &Pipeline{
		images:     analyzer.NewWithConfig(analyzerConfig),
		detector:   vision.NewWithConfig(visionConfig),
		converter:  measure.NewWithConfig(measureConfig),
		scorer:     score.NewWithConfig(scoreConfig),
		renderer:   visualize.NewWithConfig(visualizeConfig),
		classifier: cls,
	}
}

// Report is the complete analysis result for one image. On a no-animal
// input only Classification and Message are set.
type Report struct {
	Classification types.Classification `json:"classification"`
	Keypoints      types.KeypointSet    `json:"keypoints,omitempty"`
	Measurements   *types.Measurements  `json:"measurements,omitempty"`
	Score          *types.ATCScore      `json:"atc_score,omitempty"`
	Visualization  []byte               `json:"-"`
	Text           string               `json:"report,omitempty"`
	Message        string               `json:"message,omitempty"`
}

// AnimalDetected reports whether the pipeline produced measurements for
// this image.
func (r *Report) AnimalDetected() bool {
	return r.Measurements != nil
}

// LoadImage loads an image from file
func (p *Pipeline) LoadImage(filepath string) (image.Image, error) {
	return p.images.LoadImage(filepath)
}

// LoadImageFromReader loads an image from an io.Reader
func (p *Pipeline) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	return p.images.LoadImageFromReader(reader)
}

// DecodeImage decodes an image from raw bytes
func (p *Pipeline) DecodeImage(data []byte) (image.Image, error) {
	return p.images.DecodeImage(data)
}

// SaveImage saves an image to file
func (p *Pipeline) SaveImage(img image.Image, filepath string) error {
	return p.images.SaveImage(img, filepath)
}

// ValidateImage checks if an image meets requirements
func (p *Pipeline) ValidateImage(img image.Image) error {
	return p.images.ValidateImage(img)
}

// EncodeBase64 encodes an image for transport in a JSON response.
func (p *Pipeline) EncodeBase64(img image.Image) (string, error) {
	return p.images.EncodeBase64(img, "jpg")
}

// Classify runs only the classification stage.
func (p *Pipeline) Classify(ctx context.Context, img image.Image) (types.Classification, error) {
	if p.classifier == nil {
		return types.Classification{}, fmt.Errorf("no classifier configured")
	}
	return p.classifier.Classify(ctx, img)
}

// Analyze classifies the image and runs the full body structure analysis.
func (p *Pipeline) Analyze(ctx context.Context, img image.Image) (*Report, error) {
	cls, err := p.Classify(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}
	return p.AnalyzeClassified(img, cls)
}

// AnalyzeClassified runs the body structure analysis for an image whose
// classification is already known. When the classification is None, or no
// silhouette can be extracted, a reduced report carrying only the
// classification and an explanatory message is returned.
func (p *Pipeline) AnalyzeClassified(img image.Image, cls types.Classification) (*Report, error) {
	if cls.Type == types.AnimalNone {
		return &Report{Classification: cls, Message: msgNoAnimalClassified}, nil
	}

	keypoints, err := p.detector.EstimateKeypoints(img)
	if err != nil {
		if errors.Is(err, vision.ErrNoAnimalDetected) {
			return &Report{Classification: cls, Message: msgNoSilhouette}, nil
		}
		return nil, fmt.Errorf("keypoint estimation failed: %w", err)
	}

	scale := p.converter.EstimateScale(keypoints, cls.Type)
	measurements := p.converter.Convert(keypoints, scale)

	atc := p.scorer.Score(measurements, cls)

	annotated := p.renderer.Render(img, keypoints, measurements)
	encoded, err := p.renderer.EncodeJPEG(annotated)
	if err != nil {
		return nil, err
	}

	return &Report{
		Classification: cls,
		Keypoints:      keypoints,
		Measurements:   &measurements,
		Score:          &atc,
		Visualization:  encoded,
		Text:           score.BuildReport(measurements, cls),
	}, nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
