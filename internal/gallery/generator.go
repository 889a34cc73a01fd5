// Package gallery builds the link gallery: it scans link files, resolves
// them, emits one QR image per link and writes a single sorted HTML page.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/starford/qrx/internal/apperr"
	"github.com/starford/qrx/internal/models"
	"github.com/starford/qrx/internal/qrimage"
	"github.com/starford/qrx/internal/resolver"
	"github.com/starford/qrx/internal/scanner"
	"github.com/starford/qrx/internal/storage"
)

// Config describes one gallery build.
type Config struct {
	SourceDir   string
	DistDir     string
	ImageSubDir string
	OutputFile  string
	Naming      models.Naming
	ExcludeDirs []string
	IgnoreFile  string
	Policy      resolver.Policy
	QR          qrimage.Options
	// SkipOversize keeps records whose payload does not fit in a QR code
	// and renders a placeholder instead of failing the build.
	SkipOversize bool
	LayoutFile   string
	StylesFile   string
}

// Result summarises a build.
type Result struct {
	// Skipped is true when the source directory does not exist.
	Skipped bool
	// Written is false when no link files were found.
	Written    bool
	OutputPath string
	Records    []models.LinkRecord
	Oversized  int
}

// Option is a functional option for configuring a Generator.
type Option func(*Generator)

// WithEmitter replaces the default QR emitter.
func WithEmitter(e qrimage.Emitter) Option {
	return func(g *Generator) {
		g.emitter = e
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// Generator assembles the gallery.
type Generator struct {
	cfg      Config
	scanner  *scanner.Scanner
	resolver *resolver.Resolver
	emitter  qrimage.Emitter
	logger   *slog.Logger
}

// NewGenerator creates a Generator for cfg.
func NewGenerator(cfg Config, opts ...Option) *Generator {
	if cfg.Naming.LinkSuffix == "" {
		cfg.Naming.LinkSuffix = models.DefaultLinkSuffix
	}
	if cfg.Naming.ImageSuffix == "" {
		cfg.Naming.ImageSuffix = models.DefaultImageSuffix
	}
	g := &Generator{
		cfg:      cfg,
		scanner:  scanner.New(cfg.Naming.LinkSuffix, cfg.ExcludeDirs, cfg.IgnoreFile),
		resolver: resolver.New(cfg.Policy),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build runs the full pipeline. A missing source directory is not an
// error. Any per-file failure aborts the whole build.
func (g *Generator) Build(ctx context.Context) (*Result, error) {
	if _, err := os.Stat(g.cfg.SourceDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			g.logger.Debug("gallery: source dir missing, skipping", slog.String("source", g.cfg.SourceDir))
			return &Result{Skipped: true}, nil
		}
		return nil, fmt.Errorf("gallery: stat source: %w", err)
	}

	g.logger.Info("gallery: starting build", slog.String("source", g.cfg.SourceDir))

	layout, err := LoadLayout(g.cfg.LayoutFile, g.cfg.StylesFile)
	if err != nil {
		return nil, err
	}

	src, err := storage.NewFS(g.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("gallery: open source: %w", err)
	}
	out, err := storage.Ensure(g.cfg.DistDir)
	if err != nil {
		return nil, fmt.Errorf("gallery: prepare dist: %w", err)
	}
	if err := out.MkdirAll(g.cfg.ImageSubDir); err != nil {
		return nil, fmt.Errorf("gallery: prepare image dir: %w", err)
	}

	emitter := g.emitter
	if emitter == nil {
		emitter, err = qrimage.NewQREmitter(out, g.cfg.QR)
		if err != nil {
			return nil, err
		}
	}

	files, err := g.scanner.Scan(src.Root())
	if err != nil {
		return nil, err
	}
	rels := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(src.Root(), f)
		if err != nil {
			return nil, fmt.Errorf("gallery: relative path: %w", err)
		}
		rels[i] = rel
	}
	if err := CheckCollisions(rels, g.cfg.Naming); err != nil {
		return nil, err
	}

	g.logger.Info("gallery: processing links", slog.Int("count", len(rels)))

	records := make([]models.LinkRecord, len(rels))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, rel := range rels {
		i, rel := i, rel
		eg.Go(func() error {
			rec, err := g.process(egCtx, src, emitter, rel)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Records: records}
	for _, r := range records {
		if r.Oversize {
			res.Oversized++
		}
	}

	if len(records) == 0 {
		g.logger.Info("gallery: no link files found, nothing written")
		return res, nil
	}

	SortRecords(records)

	page, err := layout.Render(records, g.cfg.ImageSubDir)
	if err != nil {
		return nil, err
	}
	if err := out.Write(g.cfg.OutputFile, page); err != nil {
		return nil, fmt.Errorf("gallery: write page: %w", err)
	}

	res.Written = true
	res.OutputPath = filepath.Join(out.Root(), g.cfg.OutputFile)
	g.logger.Info("gallery: generated",
		slog.String("output", res.OutputPath),
		slog.Int("records", len(records)),
		slog.Int("oversized", res.Oversized))
	return res, nil
}

// process reads one link file, builds its record and emits its image.
func (g *Generator) process(ctx context.Context, src storage.Provider, emitter qrimage.Emitter, rel string) (models.LinkRecord, error) {
	data, err := src.Read(rel)
	if err != nil {
		return models.LinkRecord{}, fmt.Errorf("gallery: %w", err)
	}
	if !utf8.Valid(data) {
		return models.LinkRecord{}, fmt.Errorf("gallery: %s is not valid UTF-8 text", rel)
	}

	rec := models.NewLinkRecord(rel, string(data), g.cfg.Naming, g.resolver.Resolve)

	dest := path.Join(g.cfg.ImageSubDir, rec.ImageFileName)
	err = emitter.Emit(ctx, rec.Link.QRPayload, dest)
	switch {
	case err == nil:
		return rec, nil
	case g.cfg.SkipOversize && errors.Is(err, apperr.ErrPayloadTooLarge):
		g.logger.Warn("gallery: payload too large, rendering placeholder",
			slog.String("path", rel),
			slog.Int("bytes", len(rec.Link.QRPayload)))
		rec.Oversize = true
		return rec, nil
	default:
		return rec, fmt.Errorf("gallery: emit %s: %w", rel, err)
	}
}

// CheckCollisions reports an error when two relative paths flatten to the
// same image file name, e.g. "a/b.link" and "a__b.link".
func CheckCollisions(rels []string, n models.Naming) error {
	seen := make(map[string]string, len(rels))
	for _, rel := range rels {
		name := n.ImageFileName(rel)
		if other, ok := seen[name]; ok {
			return fmt.Errorf("gallery: %q and %q both map to %q: %w", other, rel, name, apperr.ErrNameCollision)
		}
		seen[name] = rel
	}
	return nil
}
