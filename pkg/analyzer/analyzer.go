package analyzer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ImageAnalyzer handles image loading, saving, and validation for the
// analysis pipeline.
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	DefaultQuality   int
	SupportedFormats []string
	MinImageSize     int
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		DefaultQuality:   85,
		SupportedFormats: []string{"jpg", "jpeg", "png", "webp"},
		MinImageSize:     100,
	}
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{config: DefaultConfig()}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// LoadImage loads an image from file
func (a *ImageAnalyzer) LoadImage(filepath string) (image.Image, error) {
	if img, err := imaging.Open(filepath); err == nil {
		return img, nil
	}

	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	return a.LoadImageFromReader(file)
}

// LoadImageFromReader loads an image from an io.Reader
func (a *ImageAnalyzer) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return a.DecodeImage(data)
}

// DecodeImage decodes an image from byte data with WebP fallback.
func (a *ImageAnalyzer) DecodeImage(data []byte) (image.Image, error) {
	if img, format, err := image.Decode(bytes.NewReader(data)); err == nil {
		if !a.isFormatSupported(format) {
			return nil, fmt.Errorf("unsupported image format: %s", format)
		}
		return img, nil
	}

	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		if !a.isFormatSupported("webp") {
			return nil, fmt.Errorf("unsupported image format: webp")
		}
		return img, nil
	}

	return nil, fmt.Errorf("failed to decode image: unknown or unsupported format")
}

// SaveImage saves an image to file
func (a *ImageAnalyzer) SaveImage(img image.Image, filepath string) error {
	ext := strings.ToLower(filepath[strings.LastIndex(filepath, ".")+1:])

	switch ext {
	case "jpg", "jpeg":
		return imaging.Save(img, filepath, imaging.JPEGQuality(a.config.DefaultQuality))
	case "png":
		return imaging.Save(img, filepath)
	case "webp":
		file, err := os.Create(filepath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		return webp.Encode(file, img, &webp.Options{Quality: float32(a.config.DefaultQuality)})
	default:
		return fmt.Errorf("unsupported output format: %s", ext)
	}
}

// EncodeJPEG encodes an image to JPEG bytes at the configured quality.
func (a *ImageAnalyzer) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.config.DefaultQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeBase64 encodes an image for transport in a JSON response. Format is
// "jpg" or "png"; jpg is used for anything else.
func (a *ImageAnalyzer) EncodeBase64(img image.Image, format string) (string, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", fmt.Errorf("failed to encode image: %w", err)
		}
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.config.DefaultQuality}); err != nil {
			return "", fmt.Errorf("failed to encode image: %w", err)
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	return ImageInfo{
		Width:       width,
		Height:      height,
		AspectRatio: float64(width) / float64(height),
		Area:        width * height,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
