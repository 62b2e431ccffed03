package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/flightops/delay-engine/internal/config"
	"github.com/flightops/delay-engine/internal/registry"
	"github.com/flightops/delay-engine/internal/utils"
)

func main() {
	var (
		configPath   string
		artifactPath string
		modelName    string
		version      string
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&artifactPath, "model", "model.bin", "Path to the trained model artifact")
	flag.StringVar(&modelName, "name", "", "Registry model name (defaults to the configured one)")
	flag.StringVar(&version, "version", "", "Version identifier (generated when empty)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if cfg.Registry.BaseURL == "" {
		logger.Error("no registry configured; set registry.baseURL or DELAY_ENGINE_REGISTRY_URL")
		os.Exit(1)
	}
	if modelName == "" {
		modelName = cfg.Model.Name
	}
	if version == "" {
		version = fmt.Sprintf("v-%s-%s",
			time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	}

	artifact, err := os.ReadFile(artifactPath)
	if err != nil {
		logger.Error("failed to read artifact",
			slog.String("path", artifactPath), slog.Any("error", err))
		os.Exit(1)
	}

	client := registry.NewClient(
		cfg.Registry.BaseURL,
		cfg.Registry.ModelsPath,
		cfg.Registry.Timeout,
		nil,
		cfg.Registry.ArtifactTTL,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	meta := registry.Metadata{
		Framework: "delay-engine",
		Task:      "classification",
		TrainedAt: time.Now().UTC(),
	}
	if err := client.Upload(ctx, modelName, version, artifact, meta); err != nil {
		logger.Error("upload failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("model registered",
		slog.String("name", modelName),
		slog.String("version", version),
		slog.Int("artifact_bytes", len(artifact)))
}
