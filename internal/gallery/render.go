package gallery

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/starford/qrx/internal/models"
)

// Insertion points in the page layout.
const (
	MarkerCSS   = "<!-- INJECT_CSS -->"
	MarkerCards = "<!-- INJECT_CARDS -->"
)

//go:embed assets/layout.html assets/styles.css assets/card.html.tmpl
var assets embed.FS

var cardTmpl = template.Must(template.ParseFS(assets, "assets/card.html.tmpl"))

type cardView struct {
	DisplayName string
	Href        string
	QRPayload   string
	ImageSrc    string
	Raw         string
	Oversize    bool
}

// SortRecords orders records by DisplayName using a locale-aware collation.
// Equal names keep their relative order.
func SortRecords(records []models.LinkRecord) {
	c := collate.New(language.Und)
	slices.SortStableFunc(records, func(a, b models.LinkRecord) int {
		return c.CompareString(a.DisplayName, b.DisplayName)
	})
}

// RenderCard renders one record as a card fragment. imageSubDir is the
// image directory relative to the page.
func RenderCard(rec models.LinkRecord, imageSubDir string) (string, error) {
	view := cardView{
		DisplayName: rec.DisplayName,
		Href:        rec.Link.Href,
		QRPayload:   rec.Link.QRPayload,
		ImageSrc:    "./" + path.Join(imageSubDir, rec.ImageFileName),
		Raw:         rec.Raw,
		Oversize:    rec.Oversize,
	}
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("gallery: render %s: %w", rec.RelPath, err)
	}
	return buf.String(), nil
}

// Layout is the page shell the cards are spliced into.
type Layout struct {
	HTML string
	CSS  string
}

// LoadLayout returns the embedded layout, with either part replaced by the
// contents of htmlFile or cssFile when those are set.
func LoadLayout(htmlFile, cssFile string) (*Layout, error) {
	html, err := readAsset(htmlFile, "assets/layout.html")
	if err != nil {
		return nil, err
	}
	css, err := readAsset(cssFile, "assets/styles.css")
	if err != nil {
		return nil, err
	}
	if !strings.Contains(html, MarkerCards) {
		return nil, fmt.Errorf("gallery: layout has no %s marker", MarkerCards)
	}
	return &Layout{HTML: html, CSS: css}, nil
}

func readAsset(override, embedded string) (string, error) {
	if override != "" {
		data, err := os.ReadFile(override)
		if err != nil {
			return "", fmt.Errorf("gallery: read %s: %w", override, err)
		}
		return string(data), nil
	}
	data, err := assets.ReadFile(embedded)
	if err != nil {
		return "", fmt.Errorf("gallery: read embedded %s: %w", embedded, err)
	}
	return string(data), nil
}

// Render splices the rendered records into the layout. records must
// already be sorted.
func (l *Layout) Render(records []models.LinkRecord, imageSubDir string) ([]byte, error) {
	cards := make([]string, 0, len(records))
	for _, rec := range records {
		card, err := RenderCard(rec, imageSubDir)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	page := strings.Replace(l.HTML, MarkerCSS, l.CSS, 1)
	page = strings.Replace(page, MarkerCards, strings.Join(cards, "\n"), 1)
	return []byte(page), nil
}
