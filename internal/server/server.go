// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"encoding/base64"
	"image"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	cattleanalyzer "github.com/agrovision/cattle-analyzer"
	"github.com/agrovision/cattle-analyzer/internal/logging"
	"github.com/agrovision/cattle-analyzer/internal/utils"
)

// Server handles HTTP requests against a shared analysis pipeline.
type Server struct {
	pipeline       *cattleanalyzer.Pipeline
	logger         *zap.Logger
	maxUploadBytes int64
}

// New creates a Server around a pipeline.
func New(pipeline *cattleanalyzer.Pipeline, logger *zap.Logger, maxUploadBytes int64) *Server {
	return &Server{
		pipeline:       pipeline,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)
	router.POST("/predict", s.handlePredict)
	router.POST("/analyze", s.handleAnalyze)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": cattleanalyzer.GetVersion(),
	})
}

// handlePredict runs only the classification stage and echoes the image.
func (s *Server) handlePredict(c *gin.Context) {
	requestID := uuid.NewString()
	logger := logging.WithRequest(s.logger, requestID)

	img, ok := s.readUpload(c, logger)
	if !ok {
		return
	}

	cls, err := s.pipeline.Classify(c.Request.Context(), img)
	if err != nil {
		logger.Error("classification failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "classification failed"})
		return
	}

	encoded, err := s.pipeline.EncodeBase64(img)
	if err != nil {
		logger.Error("image encoding failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode image"})
		return
	}

	logger.Info("prediction served",
		zap.String("animal_type", string(cls.Type)),
		zap.Float64("confidence", cls.Confidence))

	c.JSON(http.StatusOK, gin.H{
		"request_id":     requestID,
		"classification": cls,
		"image":          encoded,
	})
}

// handleAnalyze runs the full body structure analysis. When no animal is
// classified or no silhouette is found the response carries only the
// classification and an explanatory message.
func (s *Server) handleAnalyze(c *gin.Context) {
	requestID := uuid.NewString()
	logger := logging.WithRequest(s.logger, requestID)

	img, ok := s.readUpload(c, logger)
	if !ok {
		return
	}

	report, err := s.pipeline.Analyze(c.Request.Context(), img)
	if err != nil {
		logger.Error("analysis failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	response := gin.H{
		"request_id":     requestID,
		"classification": report.Classification,
	}

	if !report.AnimalDetected() {
		response["message"] = report.Message
		logger.Info("analysis skipped", zap.String("reason", report.Message))
		c.JSON(http.StatusOK, response)
		return
	}

	response["keypoints"] = report.Keypoints
	response["measurements"] = report.Measurements.ValidMap()
	response["atc_score"] = report.Score
	response["annotated_image"] = base64.StdEncoding.EncodeToString(report.Visualization)
	response["report"] = report.Text

	logger.Info("analysis served",
		zap.String("animal_type", string(report.Classification.Type)),
		zap.Float64("atc_score", report.Score.Overall))

	c.JSON(http.StatusOK, response)
}

// readUpload extracts and decodes the multipart image upload, writing the
// error response itself when the upload is rejected.
func (s *Server) readUpload(c *gin.Context, logger *zap.Logger) (image.Image, bool) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return nil, false
	}

	if file.Size > s.maxUploadBytes {
		logger.Warn("upload rejected: too large", zap.Int64("size", file.Size))
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return nil, false
	}

	if !utils.IsImageFile(file.Filename) {
		logger.Warn("upload rejected: unsupported extension", zap.String("filename", file.Filename))
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image format"})
		return nil, false
	}

	img, err := s.decodeUpload(file)
	if err != nil {
		logger.Warn("upload rejected: decode failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to decode image"})
		return nil, false
	}

	if err := s.pipeline.ValidateImage(img); err != nil {
		logger.Warn("upload rejected: validation failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	return img, true
}

func (s *Server) decodeUpload(file *multipart.FileHeader) (image.Image, error) {
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return s.pipeline.LoadImageFromReader(src)
}
