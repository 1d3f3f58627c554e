package vision

import (
	"errors"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// ErrNoAnimalDetected is returned when silhouette extraction finds no
// usable contour. Callers skip measurement and scoring on this error.
var ErrNoAnimalDetected = errors.New("no animal silhouette detected")

// SilhouetteDetector extracts the animal outline from an image and
// estimates anatomical keypoints from it. Detection is a heuristic based on
// edge strength and the largest connected region, not a learned model;
// accuracy is best-effort.
type SilhouetteDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for silhouette detection
type DetectionConfig struct {
	BlurSigma          float64
	GradientThreshold  float64
	MinSilhouetteRatio float64
}

// New creates a new SilhouetteDetector with default configuration
func New() *SilhouetteDetector {
	return &SilhouetteDetector{
		config: DetectionConfig{
			BlurSigma:          1.5,
			GradientThreshold:  0.08,
			MinSilhouetteRatio: 0.005,
		},
	}
}

// NewWithConfig creates a new SilhouetteDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SilhouetteDetector {
	return &SilhouetteDetector{config: config}
}

// Silhouette describes the extracted animal outline.
type Silhouette struct {
	Bounds image.Rectangle
	Area   int
}

// EstimateKeypoints extracts the animal silhouette and derives the
// anatomical landmark positions from its bounding box. Returns
// ErrNoAnimalDetected when no plausible subject is found.
func (d *SilhouetteDetector) EstimateKeypoints(img image.Image) (types.KeypointSet, error) {
	sil, err := d.DetectSilhouette(img)
	if err != nil {
		return nil, err
	}
	return d.keypointsFromBounds(sil.Bounds, img.Bounds()), nil
}

// DetectSilhouette finds the largest edge-connected region in the image,
// assumed to be the animal. Returns ErrNoAnimalDetected for blank or
// degenerate inputs.
func (d *SilhouetteDetector) DetectSilhouette(img image.Image) (Silhouette, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return Silhouette{}, ErrNoAnimalDetected
	}

	gray := imaging.Blur(imaging.Grayscale(img), d.config.BlurSigma)

	mask := d.edgeMask(gray, width, height)

	region, area := largestComponent(mask, width, height)
	minArea := int(float64(width*height) * d.config.MinSilhouetteRatio)
	if area == 0 || area < minArea {
		return Silhouette{}, ErrNoAnimalDetected
	}
	if region.Dx() < 3 || region.Dy() < 3 {
		return Silhouette{}, ErrNoAnimalDetected
	}

	// Translate back into the source image's coordinate space.
	region = region.Add(bounds.Min)

	return Silhouette{Bounds: region, Area: area}, nil
}

// edgeMask marks pixels whose gradient magnitude exceeds the threshold.
func (d *SilhouetteDetector) edgeMask(gray *image.NRGBA, width, height int) []bool {
	// Luminance per pixel; the image is already grayscale so any channel works.
	lum := make([]float64, width*height)
	for y := 0; y < height; y++ {
		row := y * gray.Stride
		for x := 0; x < width; x++ {
			lum[y*width+x] = float64(gray.Pix[row+x*4]) / 255.0
		}
	}

	mask := make([]bool, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			// Sobel gradient
			tl := lum[(y-1)*width+x-1]
			tc := lum[(y-1)*width+x]
			tr := lum[(y-1)*width+x+1]
			ml := lum[y*width+x-1]
			mr := lum[y*width+x+1]
			bl := lum[(y+1)*width+x-1]
			bc := lum[(y+1)*width+x]
			br := lum[(y+1)*width+x+1]

			gx := (tr + 2*mr + br) - (tl + 2*ml + bl)
			gy := (bl + 2*bc + br) - (tl + 2*tc + tr)
			magnitude := math.Sqrt(gx*gx+gy*gy) / 4.0

			if magnitude > d.config.GradientThreshold {
				mask[y*width+x] = true
			}
		}
	}
	return mask
}

// largestComponent finds the biggest 8-connected region of marked pixels
// and returns its bounding box (in mask coordinates) and pixel count.
func largestComponent(mask []bool, width, height int) (image.Rectangle, int) {
	visited := make([]bool, len(mask))
	var best image.Rectangle
	bestArea := 0

	neighbors := [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1}, {0, -1},
		{0, 1}, {1, -1}, {1, 0}, {1, 1},
	}

	stack := make([]int, 0, 256)
	for start := 0; start < len(mask); start++ {
		if !mask[start] || visited[start] {
			continue
		}

		minX, minY := width, height
		maxX, maxY := 0, 0
		area := 0

		visited[start] = true
		stack = append(stack[:0], start)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := idx%width, idx/width

			area++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for _, offset := range neighbors {
				nx, ny := x+offset[1], y+offset[0]
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				nidx := ny*width + nx
				if mask[nidx] && !visited[nidx] {
					visited[nidx] = true
					stack = append(stack, nidx)
				}
			}
		}

		if area > bestArea {
			bestArea = area
			best = image.Rect(minX, minY, maxX+1, maxY+1)
		}
	}

	return best, bestArea
}

// keypointsFromBounds places landmarks at fixed fractional offsets of the
// silhouette bounding box, based on typical cattle side-profile proportions.
func (d *SilhouetteDetector) keypointsFromBounds(region, imgBounds image.Rectangle) types.KeypointSet {
	x, y := region.Min.X, region.Min.Y
	w, h := region.Dx(), region.Dy()

	offsets := map[string][2]float64{
		types.KeypointNose:       {0.10, 0.30},
		types.KeypointWithers:    {0.30, 0.20},
		types.KeypointRump:       {0.80, 0.25},
		types.KeypointShoulder:   {0.25, 0.40},
		types.KeypointHip:        {0.75, 0.40},
		types.KeypointChestFront: {0.20, 0.50},
		types.KeypointChestDeep:  {0.40, 0.70},
		types.KeypointFrontHoof:  {0.25, 0.95},
		types.KeypointRearHoof:   {0.75, 0.95},
		types.KeypointBelly:      {0.50, 0.80},
	}

	keypoints := make(types.KeypointSet, len(offsets))
	for name, frac := range offsets {
		kp := types.Keypoint{
			X: x + int(float64(w)*frac[0]),
			Y: y + int(float64(h)*frac[1]),
		}
		keypoints[name] = clampKeypoint(kp, imgBounds)
	}
	return keypoints
}

func clampKeypoint(kp types.Keypoint, bounds image.Rectangle) types.Keypoint {
	if kp.X < bounds.Min.X {
		kp.X = bounds.Min.X
	}
	if kp.X >= bounds.Max.X {
		kp.X = bounds.Max.X - 1
	}
	if kp.Y < bounds.Min.Y {
		kp.Y = bounds.Min.Y
	}
	if kp.Y >= bounds.Max.Y {
		kp.Y = bounds.Max.Y - 1
	}
	return kp
}
