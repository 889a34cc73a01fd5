// Package preview reports the size of built pages and renders each one as a
// QR code, either to the terminal or to a PNG next to the page.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/starford/qrx/internal/apperr"
	"github.com/starford/qrx/internal/qrimage"
	"github.com/starford/qrx/internal/storage"
)

// Status values reported per target.
const (
	StatusMissing   = "missing"
	StatusPreviewed = "previewed"
	StatusSaved     = "saved"
	StatusTooBig    = "too_big"
	StatusFailed    = "failed"
)

// Report describes the outcome for one target.
type Report struct {
	File   string
	Size   int
	Status string
	Output string
}

// Previewer renders dist pages as QR codes.
type Previewer struct {
	dist    *storage.FS
	targets []string
	qr      *qrimage.QREmitter
	out     io.Writer
	logger  *slog.Logger
}

// New creates a Previewer over the pages in dist.
func New(dist *storage.FS, targets []string, opts qrimage.Options, out io.Writer, logger *slog.Logger) (*Previewer, error) {
	qr, err := qrimage.NewQREmitter(dist, opts)
	if err != nil {
		return nil, err
	}
	return &Previewer{dist: dist, targets: targets, qr: qr, out: out, logger: logger}, nil
}

// Run processes every target. Missing targets are skipped and oversized
// pages are reported without failing. Other per-target errors are joined
// and returned after all targets were tried.
func (p *Previewer) Run(ctx context.Context, saveToFile bool) ([]Report, error) {
	var reports []Report
	var errs []error
	for _, file := range p.targets {
		rep, err := p.one(ctx, file, saveToFile)
		if err != nil {
			p.logger.Error("preview: failed", slog.String("file", file), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		reports = append(reports, rep)
	}
	return reports, errors.Join(errs...)
}

func (p *Previewer) one(ctx context.Context, file string, saveToFile bool) (Report, error) {
	rep := Report{File: file, Status: StatusMissing}

	data, err := p.dist.Read(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rep, nil
		}
		rep.Status = StatusFailed
		return rep, err
	}
	content := string(data)
	rep.Size = len(data)

	fmt.Fprintf(p.out, "┌── [ %s ]\n", file)
	fmt.Fprintf(p.out, "│ %-12s %s\n", "Final Size:", FormatBytes(rep.Size))
	defer fmt.Fprintln(p.out, "└──")

	if saveToFile {
		outName := strings.TrimSuffix(file, ".html") + ".qrcode.png"
		err := p.qr.Emit(ctx, content, outName)
		switch {
		case errors.Is(err, apperr.ErrPayloadTooLarge):
			rep.Status = StatusTooBig
			fmt.Fprintf(p.out, "│ %-12s %s\n", "QR Status:", "Failed (Too Big)")
			return rep, nil
		case err != nil:
			rep.Status = StatusFailed
			return rep, err
		}
		rep.Status = StatusSaved
		rep.Output = outName
		fmt.Fprintf(p.out, "│ %-12s %s\n", "QR Status:", "Generated")
		fmt.Fprintf(p.out, "│ %-12s %s\n", "Saved To:", outName)
		return rep, nil
	}

	s, err := p.qr.Terminal(content)
	switch {
	case errors.Is(err, apperr.ErrPayloadTooLarge):
		rep.Status = StatusTooBig
		fmt.Fprintf(p.out, "│ %-12s %s\n", "QR Status:", "Too big for terminal")
		return rep, nil
	case err != nil:
		rep.Status = StatusFailed
		return rep, err
	}
	rep.Status = StatusPreviewed
	fmt.Fprintf(p.out, "│ %-12s %s\n", "QR Status:", "Preview Below")
	fmt.Fprint(p.out, s)
	return rep, nil
}

// FormatBytes renders n as "N B" below 1 KiB and "N.NN kB" above.
func FormatBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f kB", float64(n)/1024)
}
