// Package internal provides the application wiring for the gallery build,
// the watch loop, the dev server and the preview tool.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/qrx/internal/gallery"
	"github.com/starford/qrx/internal/preview"
	"github.com/starford/qrx/internal/server"
	"github.com/starford/qrx/internal/sse"
	"github.com/starford/qrx/internal/storage"
	"github.com/starford/qrx/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		logOutput: os.Stderr,
		stdout:    os.Stdout,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func (a *application) newLogger() *slog.Logger {
	hopts := &slog.HandlerOptions{Level: a.config.App.LogLevel}
	var h slog.Handler
	if a.config.App.LogFormat == LogFormatText {
		h = slog.NewTextHandler(a.logOutput, hopts)
	} else {
		h = slog.NewJSONHandler(a.logOutput, hopts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func (a *application) newGenerator(logger *slog.Logger) (*gallery.Generator, error) {
	gcfg, err := a.config.Gallery.GeneratorConfig(a.config.QR)
	if err != nil {
		return nil, err
	}
	gopts := []gallery.Option{gallery.WithLogger(logger)}
	if a.emitter != nil {
		gopts = append(gopts, gallery.WithEmitter(a.emitter))
	}
	return gallery.NewGenerator(gcfg, gopts...), nil
}

// Build runs a single gallery build.
func Build(ctx context.Context, opts ...Option) (*gallery.Result, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.newLogger()

	gen, err := app.newGenerator(logger)
	if err != nil {
		return nil, err
	}
	res, err := gen.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return res, nil
}

// Watch builds once, then rebuilds whenever the source or extra watch
// directories change, until ctx is cancelled or a signal arrives.
func Watch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.newLogger()

	gen, err := app.newGenerator(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.watchLoop(ctx, gen, logger, nil)
}

// watchLoop runs an initial build and then the watcher. Build errors are
// logged and published but never stop the loop.
func (a *application) watchLoop(ctx context.Context, gen *gallery.Generator, logger *slog.Logger, broker *sse.Broker) error {
	rebuild := func(ctx context.Context, changed string) {
		if changed != "" {
			logger.Info("watch: change detected, rebuilding", slog.String("path", changed))
		}
		res, err := gen.Build(ctx)
		if err != nil {
			logger.Error("watch: build failed", slog.String("error", err.Error()))
			if broker != nil {
				broker.PublishFailed(err)
			}
			return
		}
		if broker != nil && res.Written {
			clients := broker.PublishRebuilt(len(res.Records))
			logger.Info("watch: reload published", slog.Int("clients", clients))
		}
	}

	rebuild(ctx, "")

	roots := append([]string{a.config.Gallery.SourceDir}, a.config.Watch.ExtraDirs...)
	return watch.Watch(ctx, roots, a.config.Watch.Debounce, logger, rebuild)
}

// Serve runs the watch loop and an HTTP server for the dist directory with
// live reload.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.newLogger()

	gen, err := app.newGenerator(logger)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Gallery.DistDir, 0o755); err != nil {
		return fmt.Errorf("create dist dir: %w", err)
	}

	broker := sse.NewBroker()
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           server.NewRouter(cfg.Gallery.DistDir, cfg.Gallery.OutputFile, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.watchLoop(gCtx, gen, logger, broker)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Close live-reload streams first so Shutdown does not wait on them.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Preview prints the size of each preview target in dist and renders it as
// a terminal QR code, or as a PNG beside it when saveToFile is set.
func Preview(ctx context.Context, saveToFile bool, opts ...Option) ([]preview.Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.newLogger()

	dist, err := storage.NewFS(app.config.Gallery.DistDir)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	p, err := preview.New(dist, app.config.Preview.Targets, app.config.QR.Options(), app.stdout, logger)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, saveToFile)
}
