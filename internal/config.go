package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/qrx/internal/gallery"
	"github.com/starford/qrx/internal/models"
	"github.com/starford/qrx/internal/qrimage"
	"github.com/starford/qrx/internal/resolver"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Oversize handling modes.
const (
	OversizeFail = "fail"
	OversizeSkip = "skip"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Gallery GalleryConfig     `yaml:"gallery"`
	QR      QRConfig          `yaml:"qr"`
	Watch   WatchConfig       `yaml:"watch"`
	Preview PreviewConfig     `yaml:"preview"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Gallery.Validate(); err != nil {
		return err
	}
	if err := c.QR.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = LogFormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds the dev server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// GalleryConfig describes where link files are read from and where the
// gallery is written.
type GalleryConfig struct {
	SourceDir   string   `yaml:"source_dir"`
	DistDir     string   `yaml:"dist_dir"`
	ImageSubDir string   `yaml:"image_sub_dir"`
	OutputFile  string   `yaml:"output_file"`
	LinkSuffix  string   `yaml:"link_suffix"`
	ImageSuffix string   `yaml:"image_suffix"`
	ExcludeDirs []string `yaml:"exclude_dirs"`
	IgnoreFile  string   `yaml:"ignore_file"`
	PathPolicy  string   `yaml:"path_policy"`
	OnOversize  string   `yaml:"on_oversize"`
	LayoutFile  string   `yaml:"layout_file"`
	StylesFile  string   `yaml:"styles_file"`
}

// Validate validates the gallery configuration.
func (c *GalleryConfig) Validate() error {
	if c.OnOversize == "" {
		c.OnOversize = OversizeFail
	}
	if c.PathPolicy == "" {
		c.PathPolicy = resolver.PolicyHash
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.SourceDir, validation.Required),
		validation.Field(&c.DistDir, validation.Required),
		validation.Field(&c.ImageSubDir, validation.Required),
		validation.Field(&c.OutputFile, validation.Required),
		validation.Field(&c.LinkSuffix, validation.Required),
		validation.Field(&c.ImageSuffix, validation.Required),
		validation.Field(&c.PathPolicy, validation.In(resolver.PolicyHash, resolver.PolicySlash)),
		validation.Field(&c.OnOversize, validation.In(OversizeFail, OversizeSkip)),
	)
}

// GeneratorConfig converts the gallery section into a gallery.Config.
func (c *GalleryConfig) GeneratorConfig(qr QRConfig) (gallery.Config, error) {
	policy, err := resolver.PolicyByName(c.PathPolicy)
	if err != nil {
		return gallery.Config{}, err
	}
	return gallery.Config{
		SourceDir:   c.SourceDir,
		DistDir:     c.DistDir,
		ImageSubDir: c.ImageSubDir,
		OutputFile:  c.OutputFile,
		Naming: models.Naming{
			LinkSuffix:  c.LinkSuffix,
			ImageSuffix: c.ImageSuffix,
		},
		ExcludeDirs:  c.ExcludeDirs,
		IgnoreFile:   c.IgnoreFile,
		Policy:       policy,
		QR:           qr.Options(),
		SkipOversize: c.OnOversize == OversizeSkip,
		LayoutFile:   c.LayoutFile,
		StylesFile:   c.StylesFile,
	}, nil
}

// QRConfig holds QR rendering settings.
type QRConfig struct {
	Level  string `yaml:"level"`
	Scale  int    `yaml:"scale"`
	Margin bool   `yaml:"margin"`
}

// Validate validates the QR configuration.
func (c *QRConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Level, validation.Required, validation.In("L", "M", "Q", "H")),
		validation.Field(&c.Scale, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// Options converts the section into qrimage.Options.
func (c QRConfig) Options() qrimage.Options {
	return qrimage.Options{Level: c.Level, Scale: c.Scale, Margin: c.Margin}
}

// WatchConfig controls rebuild-on-change.
type WatchConfig struct {
	Debounce  time.Duration `yaml:"debounce"`
	ExtraDirs []string      `yaml:"extra_dirs"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
	)
}

// PreviewConfig lists the built pages rendered by the preview command.
type PreviewConfig struct {
	Targets []string `yaml:"targets"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 5173,
			},
		},
		Gallery: GalleryConfig{
			SourceDir:   "./hypertext",
			DistDir:     "./dist",
			ImageSubDir: "qrcodes",
			OutputFile:  "gallery.html",
			LinkSuffix:  models.DefaultLinkSuffix,
			ImageSuffix: models.DefaultImageSuffix,
			ExcludeDirs: []string{"private"},
			IgnoreFile:  ".qrxignore",
			PathPolicy:  resolver.PolicyHash,
			OnOversize:  OversizeFail,
		},
		QR: QRConfig{
			Level: "L",
			Scale: 4,
		},
		Watch: WatchConfig{
			Debounce: 150 * time.Millisecond,
		},
		Preview: PreviewConfig{
			Targets: []string{"index.html", "min.html"},
		},
	}
}
