// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles first-run initialization
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles service authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Connect streaming services",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthSpotify,
			},
			{
				Name:  "applemusic",
				Usage: "Store an Apple Music user token",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     "token",
						Usage:    "Music-User-Token obtained from MusicKit",
						Required: true,
					},
				},
				Action: r.AuthAppleMusic,
			},
			{
				Name:   "status",
				Usage:  "Show connected services",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// transferCommand handles one-shot playlist and album copies
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Copy a playlist or album between services",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "from",
				Usage:    "Source service (spotify or apple_music)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "to",
				Usage:    "Target service (spotify or apple_music)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "id",
				Usage:    "Source playlist or album ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Name for the created playlist (defaults to the source name)",
			},
			&cli.StringFlag{
				Name:  "into",
				Usage: "Existing target playlist ID to add tracks to instead of creating one",
			},
			&cli.BoolFlag{
				Name:  "album",
				Usage: "Treat --id as an album instead of a playlist",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the transfer record as JSON",
			},
		},
		Action: r.TransferRun,
	}
}

// syncCommand manages the sync pair registry
func syncCommand(r *Runner) *cli.Command {
	pairIDFlag := &cli.StringFlag{
		Name:     "pair",
		Usage:    "Sync pair ID",
		Required: true,
	}

	return &cli.Command{
		Name:  "sync",
		Usage: "Manage and run playlist sync pairs",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a new sync pair",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{Name: "source-service", Usage: "Source service", Required: true},
					&cli.StringFlag{Name: "source-id", Usage: "Source playlist ID", Required: true},
					&cli.StringFlag{Name: "target-service", Usage: "Target service", Required: true},
					&cli.StringFlag{Name: "target-id", Usage: "Target playlist ID", Required: true},
				},
				Action: r.SyncAdd,
			},
			{
				Name:  "list",
				Usage: "List registered sync pairs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output as JSON"},
				},
				Action: r.SyncList,
			},
			{
				Name:   "remove",
				Usage:  "Remove a sync pair",
				Flags:  []cli.Flag{configFlag(), pairIDFlag},
				Action: r.SyncRemove,
			},
			{
				Name:   "enable",
				Usage:  "Enable syncing for a pair",
				Flags:  []cli.Flag{configFlag(), pairIDFlag},
				Action: r.SyncEnable,
			},
			{
				Name:   "disable",
				Usage:  "Disable syncing for a pair",
				Flags:  []cli.Flag{configFlag(), pairIDFlag},
				Action: r.SyncDisable,
			},
			{
				Name:   "run",
				Usage:  "Reconcile a pair now",
				Flags:  []cli.Flag{configFlag(), pairIDFlag},
				Action: r.SyncRun,
			},
		},
	}
}

// serveCommand runs the sync daemon
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the webhook listener and background reconciler",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Serve,
	}
}

// tuiCommand launches the interactive transfer UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive playlist transfer",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "from",
				Usage: "Source service (spotify or apple_music)",
				Value: "spotify",
			},
			&cli.StringFlag{
				Name:  "to",
				Usage: "Target service (spotify or apple_music)",
				Value: "apple_music",
			},
		},
		Action: r.TUI,
	}
}
