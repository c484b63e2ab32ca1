// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tunebridge/tunebridge/internal/links"
	"github.com/tunebridge/tunebridge/internal/repositories"
	"github.com/tunebridge/tunebridge/internal/shared"
	"github.com/tunebridge/tunebridge/internal/tasks"
	"github.com/tunebridge/tunebridge/internal/ui"
	"github.com/urfave/cli/v3"
)

// authenticate acquires tokens for both catalogs before engine work.
func (r *Runner) authenticate(ctx context.Context) error {
	if err := r.spotify.Authenticate(ctx); err != nil {
		return fmt.Errorf("spotify authentication failed: %w", err)
	}
	if err := r.appleMusic.Authenticate(ctx); err != nil {
		return fmt.Errorf("apple music authentication failed: %w", err)
	}
	return nil
}

// Resolve converts a single track/album/artist link to the other service.
func (r *Runner) Resolve(ctx context.Context, cmd *cli.Command) error {
	link := cmd.StringArg("link")
	if link == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	resolution, err := r.engine.Resolve(ctx, link)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resolution, cmd.Bool("pretty"))
	}

	r.writePlain("%s", resolution.Source.Name)
	if resolution.Source.ArtistName != "" {
		r.writePlain(" - %s", resolution.Source.ArtistName)
	}
	r.writePlain(" (%s)\n", resolution.Source.EntityType.String())
	r.writePlain("→ %s: %s\n", resolution.Destination, resolution.Link)
	return nil
}

// Classify parses a link and prints its classification without any network calls.
func (r *Runner) Classify(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("link")
	if raw == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	link := links.Classify(raw)

	if cmd.Bool("json") {
		return r.writeJSON(link, cmd.Bool("pretty"))
	}

	r.writePlain("service:    %s\n", link.Service.String())
	r.writePlain("type:       %s\n", link.EntityType.String())
	r.writePlain("id:         %s\n", link.ID)
	r.writePlain("storefront: %s\n", link.Storefront)
	return nil
}

// PlaylistConvert runs a full playlist conversion to the other service.
func (r *Runner) PlaylistConvert(ctx context.Context, cmd *cli.Command) error {
	link := cmd.StringArg("link")
	if link == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	if rps := cmd.Int("rate"); rps > 0 {
		r.engine.SetRateLimit(float64(rps))
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	r.logger.Info("starting conversion", "link", link)
	r.writePlain("Starting playlist conversion...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.SearchTracks, tasks.AddTrack:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.ConvertPlaylistLink(ctx, progressCh, link)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlainln("═══════════════════════════════════════")
	r.writePlain("Conversion Complete!\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Playlist: %s\n", result.PlaylistLink)
	r.writePlain("Matched: %d/%d tracks\n", result.MatchedCount, len(result.Outcomes))

	if len(result.FailedTracks) > 0 {
		r.writePlainln("Failed to match %d tracks:", len(result.FailedTracks))
		for _, track := range result.FailedTracks {
			r.writePlain("  - %s - %s\n", track.ArtistName, track.TrackName)
		}
	}

	return nil
}

// PlaylistTracks fetches and lists the tracks of a playlist link.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	link := cmd.StringArg("link")
	if link == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	playlist, err := r.engine.FetchTracks(ctx, link)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.writePlain("%s (%d tracks)\n\n", playlist.Title, len(playlist.Tracks))
	for i, track := range playlist.Tracks {
		r.writePlain("  %d. %s - %s\n", i+1, track.ArtistName, track.TrackName)
	}
	return nil
}

// CacheStats prints the number of cached matches.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if r.matches == nil {
		return fmt.Errorf("%w: match cache not configured", shared.ErrMissingConfig)
	}

	count, err := r.matches.Count()
	if err != nil {
		return err
	}

	r.writePlain("Cached matches: %d\n", count)
	return nil
}

// CacheClear drops cached matches, optionally scoped to one service.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if r.matches == nil {
		return fmt.Errorf("%w: match cache not configured", shared.ErrMissingConfig)
	}

	service := links.ServiceUnknown
	switch cmd.String("service") {
	case "spotify":
		service = links.Spotify
	case "applemusic", "apple":
		service = links.AppleMusic
	case "":
	default:
		return fmt.Errorf("%w: service must be 'spotify' or 'applemusic'", shared.ErrInvalidArgument)
	}

	removed, err := r.matches.Clear(service)
	if err != nil {
		return err
	}

	r.logger.Info("cleared match cache", "removed", removed)
	r.writePlain("Removed %d cached matches\n", removed)
	return nil
}

// Setup creates the config file and initializes the match cache database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.logger.Info("config file created", "path", configPath)
		if config, err = shared.LoadConfig(configPath); err != nil {
			return fmt.Errorf("failed to load created config: %w", err)
		}
	}

	if config.Cache.Path == "" {
		r.writePlain("✓ Config ready at %s (match cache disabled)\n", configPath)
		return nil
	}

	r.logger.Info("initializing match cache", "path", config.Cache.Path)

	db, err := shared.NewDatabase(config.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Cache.MaxOpenConns, config.Cache.MaxIdleConns)

	if err := repositories.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Config ready at %s\n", configPath)
	r.writePlain("✓ Match cache ready at %s\n", config.Cache.Path)
	return nil
}

// TUI launches the interactive terminal UI for a playlist conversion.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	link := cmd.StringArg("link")
	if link == "" {
		return fmt.Errorf("%w: link is required", shared.ErrMissingArgument)
	}

	if err := r.authenticate(ctx); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tunebridge-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.engine, link)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Convert a track, album or artist link to the other service",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "link"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Resolve,
	}
}

func classifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Parse a link and print its classification (no network calls)",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "link"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
			},
		},
		Action: r.Classify,
	}
}

// playlistCommand handles playlist operations
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "convert",
				Usage: "Convert a playlist to the other service",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "rate",
						Usage: "Requests per second for the conversion loop",
					},
				},
				Action: r.PlaylistConvert,
			},
			{
				Name:  "tracks",
				Usage: "List the tracks of a playlist link",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "link"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.PlaylistTracks,
			},
		},
	}
}

// cacheCommand handles the local match cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the local match cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show match cache statistics",
				Action: r.CacheStats,
			},
			{
				Name:  "clear",
				Usage: "Clear cached matches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "service",
						Usage: "Limit to one destination service (spotify or applemusic)",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the match cache",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Convert a playlist with an interactive terminal UI",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "link"},
		},
		Action: r.TUI,
	}
}
