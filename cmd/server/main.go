package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrovision/cattle-analyzer/internal/config"
	"github.com/agrovision/cattle-analyzer/internal/logging"
	"github.com/agrovision/cattle-analyzer/internal/server"
)

func main() {
	var configFile = flag.String("config", "", "Path to JSON configuration file")
	flag.Parse()

	logger, err := logging.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := config.Default()
	if *configFile != "" {
		cfg, err = config.LoadFromFile(*configFile)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", zap.Error(err))
	}

	cls, cleanup, err := cfg.BuildClassifier()
	if err != nil {
		logger.Fatal("failed to build classifier", zap.Error(err))
	}
	defer cleanup()

	pipeline := cfg.BuildPipeline(cls)

	router := gin.Default()
	router.MaxMultipartMemory = cfg.MaxUploadBytes()
	server.New(pipeline, logger, cfg.MaxUploadBytes()).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	logger.Info("cattle analyzer listening",
		zap.String("addr", cfg.Server.Addr),
		zap.String("backend", cfg.Classifier.Backend))
	if err := serve(srv, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// serve runs the HTTP server until it fails or a shutdown signal arrives,
// then drains in-flight requests within the timeout.
func serve(srv *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
