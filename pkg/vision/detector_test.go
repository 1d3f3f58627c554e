package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// createTestImage creates an image with a dark animal-like blob on a light
// background.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/5 && x < 4*width/5 && y > height/4 && y < 3*height/4 {
				img.Set(x, y, color.RGBA{60, 40, 30, 255})
			} else {
				img.Set(x, y, color.RGBA{180, 210, 170, 255})
			}
		}
	}

	return img
}

// createBlankImage creates a uniform image with no edges.
func createBlankImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}

	if detector.config.GradientThreshold <= 0 {
		t.Error("default gradient threshold should be positive")
	}
}

func TestEstimateKeypoints(t *testing.T) {
	detector := New()
	img := createTestImage(400, 300)

	keypoints, err := detector.EstimateKeypoints(img)
	if err != nil {
		t.Fatalf("EstimateKeypoints failed: %v", err)
	}

	if len(keypoints) != len(types.KeypointNames) {
		t.Errorf("Expected %d keypoints, got %d", len(types.KeypointNames), len(keypoints))
	}

	bounds := img.Bounds()
	for _, name := range types.KeypointNames {
		kp, ok := keypoints.Get(name)
		if !ok {
			t.Errorf("Missing keypoint %q", name)
			continue
		}
		if kp.X < bounds.Min.X || kp.X >= bounds.Max.X || kp.Y < bounds.Min.Y || kp.Y >= bounds.Max.Y {
			t.Errorf("Keypoint %q at (%d,%d) outside image bounds %v", name, kp.X, kp.Y, bounds)
		}
	}

	// The nose should sit ahead of the rump on a side profile.
	nose, _ := keypoints.Get(types.KeypointNose)
	rump, _ := keypoints.Get(types.KeypointRump)
	if nose.X >= rump.X {
		t.Errorf("Expected nose.X < rump.X, got %d >= %d", nose.X, rump.X)
	}
}

func TestEstimateKeypointsBlankImage(t *testing.T) {
	detector := New()
	img := createBlankImage(400, 300)

	_, err := detector.EstimateKeypoints(img)
	if !errors.Is(err, ErrNoAnimalDetected) {
		t.Errorf("Expected ErrNoAnimalDetected, got %v", err)
	}
}

func TestEstimateKeypointsTinyImage(t *testing.T) {
	detector := New()
	img := createBlankImage(2, 2)

	_, err := detector.EstimateKeypoints(img)
	if !errors.Is(err, ErrNoAnimalDetected) {
		t.Errorf("Expected ErrNoAnimalDetected, got %v", err)
	}
}

func TestEstimateKeypointsDeterministic(t *testing.T) {
	detector := New()
	img := createTestImage(400, 300)

	first, err := detector.EstimateKeypoints(img)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := detector.EstimateKeypoints(img)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for name, kp := range first {
		if second[name] != kp {
			t.Errorf("Keypoint %q differs between runs: %v vs %v", name, kp, second[name])
		}
	}
}

func TestDetectSilhouette(t *testing.T) {
	detector := New()
	img := createTestImage(400, 300)

	sil, err := detector.DetectSilhouette(img)
	if err != nil {
		t.Fatalf("DetectSilhouette failed: %v", err)
	}

	if sil.Area == 0 {
		t.Error("Expected non-zero silhouette area")
	}

	// The silhouette should overlap the blob placed in the image center.
	blob := image.Rect(400/5, 300/4, 4*400/5, 3*300/4)
	if !sil.Bounds.Overlaps(blob) {
		t.Errorf("Silhouette bounds %v do not overlap subject %v", sil.Bounds, blob)
	}
}

func TestDetectSilhouetteMinRatio(t *testing.T) {
	detector := NewWithConfig(DetectionConfig{
		BlurSigma:          1.5,
		GradientThreshold:  0.08,
		MinSilhouetteRatio: 0.99,
	})
	img := createTestImage(400, 300)

	_, err := detector.DetectSilhouette(img)
	if !errors.Is(err, ErrNoAnimalDetected) {
		t.Errorf("Expected ErrNoAnimalDetected with extreme min ratio, got %v", err)
	}
}

func TestClampKeypoint(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	tests := []struct {
		in   types.Keypoint
		want types.Keypoint
	}{
		{types.Keypoint{X: -5, Y: 50}, types.Keypoint{X: 0, Y: 50}},
		{types.Keypoint{X: 150, Y: 50}, types.Keypoint{X: 99, Y: 50}},
		{types.Keypoint{X: 50, Y: -1}, types.Keypoint{X: 50, Y: 0}},
		{types.Keypoint{X: 50, Y: 100}, types.Keypoint{X: 50, Y: 99}},
		{types.Keypoint{X: 50, Y: 50}, types.Keypoint{X: 50, Y: 50}},
	}

	for _, test := range tests {
		got := clampKeypoint(test.in, bounds)
		if got != test.want {
			t.Errorf("clampKeypoint(%v) = %v, want %v", test.in, got, test.want)
		}
	}
}

func BenchmarkEstimateKeypoints(b *testing.B) {
	detector := New()
	img := createTestImage(640, 480)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := detector.EstimateKeypoints(img)
		if err != nil {
			b.Fatal(err)
		}
	}
}
