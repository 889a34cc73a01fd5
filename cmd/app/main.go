package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/qrx/internal"
	pkgconfig "github.com/starford/qrx/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := internal.Build(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("gallery build error: %w", err)
	}
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Watch(ctx, internal.WithConfig(cfg))
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.App.HTTP.Port = int(port)
	}
	return internal.Serve(ctx, internal.WithConfig(cfg))
}

func preview(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := internal.Preview(ctx, cmd.Bool("file"), internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("preview error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "qrx",
		Usage:  "Build a QR code gallery from .link files",
		Action: build,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: "qrx.yaml",
				Value:       "qrx.yaml",
				Sources:     cli.EnvVars("QRX_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the gallery once",
				Action: build,
			},
			{
				Name:   "watch",
				Usage:  "Build, then rebuild whenever link files change",
				Action: watch,
			},
			{
				Name:   "serve",
				Usage:  "Watch and serve the dist directory with live reload",
				Action: serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port (overrides config)",
						Sources: cli.EnvVars("QRX_PORT"),
					},
				},
			},
			{
				Name:   "preview",
				Usage:  "Print the size of each built page and render it as a QR code",
				Action: preview,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "file",
						Usage: "Save PNG files next to the pages instead of printing to the terminal",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
