package classifier

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

// Normalization constants matching the training preprocessing.
var (
	normMean = [3]float32{0.485, 0.456, 0.406}
	normStd  = [3]float32{0.229, 0.224, 0.225}
)

// ModelMetadata describes an exported ONNX classification model.
type ModelMetadata struct {
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	Classes     []string `json:"classes"`
	ImageSize   int      `json:"image_size"`
}

// ONNXModel wraps a single ONNX classification session. The session and its
// tensors are created once and reused for every prediction; a mutex
// serializes Run calls because the tensors are shared.
type ONNXModel struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	metadata     ModelMetadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// NewONNXModel loads a model and its metadata. The caller must Close the
// model when done; ONNX environment setup is the caller's responsibility
// via InitONNXRuntime.
func NewONNXModel(modelPath, metadataPath string) (*ONNXModel, error) {
	metaFile, err := os.ReadFile(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model metadata: %w", err)
	}

	var metadata ModelMetadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}
	if metadata.ImageSize <= 0 || len(metadata.Classes) == 0 {
		return nil, fmt.Errorf("invalid model metadata: image_size and classes are required")
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXModel{
		session:      session,
		metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// InitONNXRuntime initializes the shared ONNX runtime environment. Call
// once at process start, before loading any model.
func InitONNXRuntime() error {
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// DestroyONNXRuntime tears down the shared ONNX runtime environment.
func DestroyONNXRuntime() {
	ort.DestroyEnvironment()
}

// Predict runs the model on an image and returns the top label with its
// softmax probability.
func (m *ONNXModel) Predict(img image.Image) (string, float64, error) {
	inputData := m.preprocess(img)

	m.mu.Lock()
	defer m.mu.Unlock()

	copy(m.inputTensor.GetData(), inputData)
	if err := m.session.Run(); err != nil {
		return "", 0, fmt.Errorf("inference failed: %w", err)
	}

	probs := softmax(m.outputTensor.GetData())

	maxIdx := 0
	for i, p := range probs {
		if p > probs[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx >= len(m.metadata.Classes) {
		return "", 0, fmt.Errorf("model output index %d exceeds class list", maxIdx)
	}

	return m.metadata.Classes[maxIdx], float64(probs[maxIdx]), nil
}

// preprocess resizes to the model input size and normalizes to CHW float32.
func (m *ONNXModel) preprocess(img image.Image) []float32 {
	size := uint(m.metadata.ImageSize)
	resized := resize.Resize(size, size, img, resize.Lanczos3)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	inputData := make([]float32, 3*width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			idx := y*width + x
			inputData[idx] = (float32(r)/65535.0 - normMean[0]) / normStd[0]
			inputData[width*height+idx] = (float32(g)/65535.0 - normMean[1]) / normStd[1]
			inputData[2*width*height+idx] = (float32(b)/65535.0 - normMean[2]) / normStd[2]
		}
	}

	return inputData
}

// Close releases the session and tensors.
func (m *ONNXModel) Close() {
	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	if m.session != nil {
		m.session.Destroy()
	}
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
