package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"

	cattleanalyzer "github.com/agrovision/cattle-analyzer"
	"github.com/agrovision/cattle-analyzer/internal/utils"
	"github.com/agrovision/cattle-analyzer/pkg/classifier"
	"github.com/agrovision/cattle-analyzer/pkg/types"
)

func main() {
	var in, outDir string
	var backend string
	var modelPath, metadataPath string
	var breedModelPath, breedMetadataPath string
	var url, model string
	var assumeType string
	var assumeConfidence float64

	flag.StringVar(&in, "in", "", "input image file or directory (jpg/png/webp)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&backend, "backend", "assume", "classification backend: onnx|ollama|assume")

	flag.StringVar(&modelPath, "model", "models/cattle_classifier.onnx", "species model path (onnx backend)")
	flag.StringVar(&metadataPath, "metadata", "models/cattle_classifier.json", "species model metadata path (onnx backend)")
	flag.StringVar(&breedModelPath, "breed-model", "", "optional breed model path (onnx backend)")
	flag.StringVar(&breedMetadataPath, "breed-metadata", "", "optional breed model metadata path (onnx backend)")

	flag.StringVar(&url, "url", "http://localhost:11434", "server URL (ollama backend)")
	flag.StringVar(&model, "ollama-model", "minicpm-v", "model name (ollama backend)")

	flag.StringVar(&assumeType, "type", "Cow", "assumed animal type: Cow|Buffalo (assume backend)")
	flag.Float64Var(&assumeConfidence, "confidence", 0.9, "assumed classification confidence (assume backend)")

	flag.Parse()
	if in == "" {
		log.Fatalf("usage: %s -in input.jpg|dir [-backend onnx|ollama|assume] [-out outdir]", filepath.Base(os.Args[0]))
	}
	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	var cls classifier.Classifier
	var err error

	switch backend {
	case "onnx":
		if err := classifier.InitONNXRuntime(); err != nil {
			log.Fatalf("Failed to initialize ONNX runtime: %v", err)
		}
		defer classifier.DestroyONNXRuntime()

		species, err := classifier.NewONNXModel(modelPath, metadataPath)
		if err != nil {
			log.Fatalf("Failed to load species model: %v", err)
		}
		var breed *classifier.ONNXModel
		if breedModelPath != "" && breedMetadataPath != "" {
			breed, err = classifier.NewONNXModel(breedModelPath, breedMetadataPath)
			if err != nil {
				log.Fatalf("Failed to load breed model: %v", err)
			}
		}
		onnx := classifier.NewONNXClassifier(species, breed)
		defer onnx.Close()
		cls = onnx
	case "ollama":
		cls, err = classifier.NewOllamaClassifier(url, model)
		if err != nil {
			log.Fatalf("Failed to create Ollama classifier: %v", err)
		}
	case "assume":
		cls = fixedClassifier{
			result: types.Classification{
				Type:       types.AnimalType(assumeType),
				Confidence: assumeConfidence,
			},
		}
	default:
		log.Fatalf("Unknown backend: %s (use 'onnx', 'ollama' or 'assume')", backend)
	}

	pipeline := cattleanalyzer.New(cls)

	inputs, err := collectInputs(in)
	if err != nil {
		log.Fatal(err)
	}
	if len(inputs) == 0 {
		log.Fatalf("no image files found in %s", in)
	}

	for _, input := range inputs {
		if err := analyzeFile(pipeline, input, outDir); err != nil {
			log.Printf("analyze %s failed: %v", input, err)
		}
	}
}

// collectInputs resolves the input argument to a list of image files.
func collectInputs(in string) ([]string, error) {
	if utils.DirExists(in) {
		return utils.ListImageFiles(in)
	}
	if !utils.FileExists(in) {
		return nil, fmt.Errorf("input not found: %s", in)
	}
	return []string{in}, nil
}

func analyzeFile(pipeline *cattleanalyzer.Pipeline, input, outDir string) error {
	img, err := pipeline.LoadImage(input)
	if err != nil {
		return err
	}

	report, err := pipeline.Analyze(context.Background(), img)
	if err != nil {
		return err
	}

	log.Printf("%s: type=%s conf=%.2f", input, report.Classification.Type, report.Classification.Confidence)

	if !report.AnimalDetected() {
		log.Printf("%s: %s", input, report.Message)
		return writeJSON(report, utils.GenerateOutputFilename(input, outDir, "_result", "json"))
	}

	log.Printf("%s: atc=%.1f (%s)", input, report.Score.Overall, report.Score.Level)

	annotatedPath := utils.GenerateOutputFilename(input, outDir, "_annotated", "jpg")
	if err := os.WriteFile(annotatedPath, report.Visualization, 0o644); err != nil {
		return fmt.Errorf("failed to write annotated image: %w", err)
	}
	log.Printf("wrote %s", annotatedPath)

	reportPath := utils.GenerateOutputFilename(input, outDir, "_report", "txt")
	if err := os.WriteFile(reportPath, []byte(report.Text), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Printf("wrote %s", reportPath)

	return writeJSON(report, utils.GenerateOutputFilename(input, outDir, "_result", "json"))
}

func writeJSON(report *cattleanalyzer.Report, path string) error {
	js, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, js, 0o644); err != nil {
		return fmt.Errorf("failed to write result json: %w", err)
	}
	log.Printf("wrote %s", path)
	return nil
}

// fixedClassifier returns a preset classification, for offline analysis of
// images whose species is already known.
type fixedClassifier struct {
	result types.Classification
}

func (f fixedClassifier) Classify(_ context.Context, _ image.Image) (types.Classification, error) {
	return f.result, nil
}
