package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cattleanalyzer "github.com/agrovision/cattle-analyzer"
	"github.com/agrovision/cattle-analyzer/pkg/types"
)

// stubClassifier returns a fixed classification without model inference.
type stubClassifier struct {
	cls types.Classification
	err error
}

func (s stubClassifier) Classify(_ context.Context, _ image.Image) (types.Classification, error) {
	return s.cls, s.err
}

// createTestImage creates an image with a dark animal-like blob on a light
// background, large enough to pass validation.
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

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func newTestRouter(t *testing.T, cls types.Classification, maxUploadBytes int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := cattleanalyzer.New(stubClassifier{cls: cls})
	router := gin.New()
	New(pipeline, zap.NewNop(), maxUploadBytes).RegisterRoutes(router)
	return router
}

func uploadRequest(t *testing.T, path, filename string, data []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, types.Classification{}, 10<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", payload["status"])
	}
}

func TestPredict(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)
	data := pngBytes(t, createTestImage(400, 300))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/predict", "cow.png", data))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeResponse(t, rec)
	if payload["request_id"] == "" {
		t.Error("Expected a request_id")
	}
	cls, ok := payload["classification"].(map[string]any)
	if !ok {
		t.Fatalf("Expected classification object, got %v", payload["classification"])
	}
	if cls["type"] != "Cow" {
		t.Errorf("Expected type Cow, got %v", cls["type"])
	}
	if payload["image"] == "" {
		t.Error("Expected the image to be echoed")
	}
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)
	data := pngBytes(t, createTestImage(400, 300))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "cow.png", data))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeResponse(t, rec)
	for _, key := range []string{"keypoints", "measurements", "atc_score", "annotated_image", "report"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("Response missing %q", key)
		}
	}
	if _, ok := payload["message"]; ok {
		t.Error("Full analysis should not carry a message")
	}
}

func TestAnalyzeNoAnimal(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalNone, Confidence: 0.2}, 10<<20)
	data := pngBytes(t, createTestImage(400, 300))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "empty.png", data))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	payload := decodeResponse(t, rec)
	if payload["message"] == "" {
		t.Error("Expected an explanatory message")
	}
	for _, key := range []string{"atc_score", "measurements", "annotated_image"} {
		if _, ok := payload[key]; ok {
			t.Errorf("Reduced response should not carry %q", key)
		}
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 64)
	data := pngBytes(t, createTestImage(400, 300))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "cow.png", data))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestAnalyzeUnsupportedExtension(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "notes.txt", []byte("not an image")))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("Expected 415, got %d", rec.Code)
	}
}

func TestAnalyzeUndecodableImage(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "broken.jpg", []byte("garbage bytes")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestAnalyzeUndersizedImage(t *testing.T) {
	router := newTestRouter(t, types.Classification{Type: types.AnimalCow, Confidence: 0.9}, 10<<20)
	data := pngBytes(t, createTestImage(40, 40))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, uploadRequest(t, "/analyze", "tiny.png", data))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
