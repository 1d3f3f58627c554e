package visualize

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// Renderer draws estimated keypoints, skeleton lines, and measurement
// captions onto a copy of the source image.
type Renderer struct {
	config Config
}

// Config holds configuration for visualization rendering
type Config struct {
	MarkerRadius int
	LineStroke   int
	JPEGQuality  int
	DrawLabels   bool
}

// New creates a new Renderer with default configuration
func New() *Renderer {
	return &Renderer{
		config: Config{
			MarkerRadius: 5,
			LineStroke:   3,
			JPEGQuality:  90,
			DrawLabels:   true,
		},
	}
}

// NewWithConfig creates a new Renderer with custom configuration
func NewWithConfig(config Config) *Renderer {
	return &Renderer{config: config}
}

// Skeleton line pairs drawn between detected landmarks.
var skeleton = [][2]string{
	{types.KeypointNose, types.KeypointWithers},
	{types.KeypointWithers, types.KeypointRump},
	{types.KeypointRump, types.KeypointHip},
	{types.KeypointHip, types.KeypointRearHoof},
	{types.KeypointShoulder, types.KeypointFrontHoof},
	{types.KeypointChestFront, types.KeypointChestDeep},
	{types.KeypointChestDeep, types.KeypointBelly},
}

// Render draws the keypoints and measurement lines onto a copy of the
// image. The source image is never modified.
func (r *Renderer) Render(img image.Image, keypoints types.KeypointSet, m types.Measurements) *image.NRGBA {
	out := imaging.Clone(img)
	offset := img.Bounds().Min

	white := color.NRGBA{255, 255, 255, 255}
	red := color.NRGBA{255, 0, 0, 255}
	yellow := color.NRGBA{255, 215, 0, 255}
	green := color.NRGBA{0, 200, 0, 255}

	// Skeleton
	for _, pair := range skeleton {
		a, okA := keypoints.Get(pair[0])
		b, okB := keypoints.Get(pair[1])
		if okA && okB {
			r.drawLine(out, translate(a, offset), translate(b, offset), white, 1)
		}
	}

	// Body length line: nose to rump
	if nose, ok := keypoints.Get(types.KeypointNose); ok {
		if rump, ok := keypoints.Get(types.KeypointRump); ok {
			r.drawLine(out, translate(nose, offset), translate(rump, offset), yellow, r.config.LineStroke)
			if r.config.DrawLabels && m.BodyLength.Valid {
				mid := types.Keypoint{X: (nose.X + rump.X) / 2, Y: (nose.Y + rump.Y) / 2}
				r.drawLabel(out, translate(mid, offset), fmt.Sprintf("Length: %.2fm", m.BodyLength.Value), yellow)
			}
		}
	}

	// Height line: withers to front hoof
	if withers, ok := keypoints.Get(types.KeypointWithers); ok {
		if hoof, ok := keypoints.Get(types.KeypointFrontHoof); ok {
			r.drawLine(out, translate(withers, offset), translate(hoof, offset), green, r.config.LineStroke)
			if r.config.DrawLabels && m.HeightAtWithers.Valid {
				label := types.Keypoint{X: withers.X + 10, Y: withers.Y}
				r.drawLabel(out, translate(label, offset), fmt.Sprintf("Height: %.2fm", m.HeightAtWithers.Value), green)
			}
		}
	}

	// Markers on top of everything else
	for name, kp := range keypoints {
		p := translate(kp, offset)
		r.drawMarker(out, p, red, white)
		if r.config.DrawLabels {
			r.drawLabel(out, image.Point{X: p.X + 8, Y: p.Y - 8}, name, white)
		}
	}

	return out
}

// EncodeJPEG serializes the annotated image for transport. An error here is
// surfaced as a request-level failure.
func (r *Renderer) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: r.config.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode visualization: %w", err)
	}
	return buf.Bytes(), nil
}

func translate(kp types.Keypoint, offset image.Point) image.Point {
	return image.Point{X: kp.X - offset.X, Y: kp.Y - offset.Y}
}

func (r *Renderer) drawMarker(img *image.NRGBA, center image.Point, fill, outline color.NRGBA) {
	radius := r.config.MarkerRadius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > radius*radius {
				continue
			}
			c := fill
			if d2 >= (radius-1)*(radius-1) {
				c = outline
			}
			setPixel(img, center.X+dx, center.Y+dy, c)
		}
	}
}

func (r *Renderer) drawLine(img *image.NRGBA, a, b image.Point, c color.NRGBA, stroke int) {
	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	length := math.Hypot(dx, dy)
	if length == 0 {
		setPixel(img, a.X, a.Y, c)
		return
	}

	steps := int(length) + 1
	half := stroke / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := a.X + int(dx*t+0.5)
		y := a.Y + int(dy*t+0.5)
		for sy := -half; sy <= half; sy++ {
			for sx := -half; sx <= half; sx++ {
				setPixel(img, x+sx, y+sy, c)
			}
		}
	}
}

func (r *Renderer) drawLabel(img *image.NRGBA, at image.Point, text string, c color.NRGBA) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(at.X, at.Y),
	}
	drawer.DrawString(text)
}

func setPixel(img *image.NRGBA, x, y int, c color.NRGBA) {
	if x < 0 || y < 0 || x >= img.Bounds().Dx() || y >= img.Bounds().Dy() {
		return
	}
	i := y*img.Stride + x*4
	img.Pix[i+0] = c.R
	img.Pix[i+1] = c.G
	img.Pix[i+2] = c.B
	img.Pix[i+3] = c.A
}
