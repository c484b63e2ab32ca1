package main

import (
	"context"
	"os"

	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/services"
	"github.com/tunebridge/tunebridge/internal/shared"
	"github.com/tunebridge/tunebridge/internal/tasks"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	spotify := services.NewSpotifyCatalog(config.Credentials.Spotify, config.HTTP, logger)
	appleMusic := services.NewAppleMusicCatalog(config.Credentials.AppleMusic, config.HTTP, logger)

	var cache tasks.MatchCacher
	var matches *repositories.MatchRepository
	if config.Cache.Path != "" {
		if db, err := shared.NewDatabase(config.Cache.Path); err == nil {
			shared.ConfigureDatabase(db, config.Cache.MaxOpenConns, config.Cache.MaxIdleConns)
			if err := repositories.Migrate(db); err == nil {
				matches = repositories.NewMatchRepository(db)
				cache = matches
			} else {
				logger.Warn("match cache unavailable", "error", err)
			}
		} else {
			logger.Warn("match cache unavailable", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		Spotify:    spotify,
		AppleMusic: appleMusic,
		Cache:      cache,
		Matches:    matches,
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "tunebridge",
		Usage:    "Convert links and playlists between Spotify & Apple Music",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
