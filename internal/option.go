package internal

import (
	"io"

	"github.com/starford/qrx/internal/qrimage"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	stdout    io.Writer
	emitter   qrimage.Emitter
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects log output (stderr by default).
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithStdout redirects command output such as terminal QR previews.
func WithStdout(w io.Writer) Option {
	return func(a *application) {
		a.stdout = w
	}
}

// WithEmitter replaces the QR emitter used by gallery builds.
func WithEmitter(e qrimage.Emitter) Option {
	return func(a *application) {
		a.emitter = e
	}
}
