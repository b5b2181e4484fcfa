package main

import (
	"context"
	"log"
	"os"

	"mvam/internal"
	"mvam/internal/config"
	"mvam/internal/container"

	"github.com/joho/godotenv"
)

// main runs the whole pipeline for the configured survey round. It takes no
// flags; everything comes from the environment or a .env file.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))
	ctx := context.Background()

	appContainer, err := container.New(ctx, appConfig, logger)
	if err != nil {
		log.Printf("Failed to create application container: %v", err)
		os.Exit(1)
	}
	defer appContainer.Shutdown()

	result, err := appContainer.Pipeline.Run(ctx)
	if err != nil {
		log.Printf("Pipeline failed: %v", err)
		appContainer.Shutdown()
		os.Exit(1)
	}

	log.Printf("Done: %d of %d responses retained, %d artifacts in %s",
		result.Clean.RetainedRows, result.Clean.RawRows, len(result.Artifacts), appConfig.Paths.DataDir)
	if n := len(result.Normalize.Unclassified); n > 0 {
		log.Printf("%d schema columns need manual review, see %s_review.md", n, appConfig.Paths.ArtifactPrefix)
	}
}
