// Package qrimage renders QR code images for link payloads.
package qrimage

import (
	"context"
	"fmt"
	"image/color"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/starford/qrx/internal/apperr"
	"github.com/starford/qrx/internal/storage"
)

// Emitter writes an image encoding text to dest.
type Emitter interface {
	// Emit renders text and writes it to dest, a path relative to the
	// emitter's output root. It returns an error wrapping
	// apperr.ErrPayloadTooLarge when text does not fit.
	Emit(ctx context.Context, text, dest string) error
}

// Options control the rendered image.
type Options struct {
	// Level is one of L, M, Q, H.
	Level string
	// Scale is the size of one module in pixels.
	Scale int
	// Margin keeps the quiet zone around the code.
	Margin bool
}

// DefaultOptions mirrors the gallery defaults: low recovery, 4px modules,
// no margin.
func DefaultOptions() Options {
	return Options{Level: "L", Scale: 4}
}

// ParseLevel maps a level letter to a recovery level.
func ParseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(s) {
	case "", "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	default:
		return qrcode.Low, fmt.Errorf("qrimage: unknown recovery level %q", s)
	}
}

// QREmitter renders PNG files into a storage provider.
type QREmitter struct {
	out   storage.Provider
	level qrcode.RecoveryLevel
	opts  Options
}

// NewQREmitter creates an emitter writing into out.
func NewQREmitter(out storage.Provider, opts Options) (*QREmitter, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	if opts.Scale <= 0 {
		opts.Scale = DefaultOptions().Scale
	}
	return &QREmitter{out: out, level: level, opts: opts}, nil
}

// Emit implements Emitter.
func (e *QREmitter) Emit(ctx context.Context, text, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	png, err := e.PNG(text)
	if err != nil {
		return err
	}
	if err := e.out.Write(dest, png); err != nil {
		return fmt.Errorf("qrimage: write %s: %w", dest, err)
	}
	return nil
}

// PNG encodes text as PNG bytes.
func (e *QREmitter) PNG(text string) ([]byte, error) {
	q, err := e.encode(text)
	if err != nil {
		return nil, err
	}
	// A negative size is a per-module scale.
	png, err := q.PNG(-e.opts.Scale)
	if err != nil {
		return nil, fmt.Errorf("qrimage: png: %w", err)
	}
	return png, nil
}

// Terminal renders text as a compact block-character string.
func (e *QREmitter) Terminal(text string) (string, error) {
	q, err := e.encode(text)
	if err != nil {
		return "", err
	}
	return q.ToSmallString(false), nil
}

func (e *QREmitter) encode(text string) (*qrcode.QRCode, error) {
	q, err := qrcode.New(text, e.level)
	if err != nil {
		if IsTooLarge(err) {
			return nil, fmt.Errorf("qrimage: %d bytes at level %s: %w", len(text), e.opts.Level, apperr.ErrPayloadTooLarge)
		}
		return nil, fmt.Errorf("qrimage: encode: %w", err)
	}
	q.DisableBorder = !e.opts.Margin
	q.ForegroundColor = color.Black
	q.BackgroundColor = color.White
	return q, nil
}

// errContentTooLong is the message go-qrcode's New returns when no QR
// version can hold the content at the requested level.
const errContentTooLong = "content too long to encode"

// IsTooLarge reports whether err is the encoder's capacity failure.
func IsTooLarge(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), errContentTooLong)
}
