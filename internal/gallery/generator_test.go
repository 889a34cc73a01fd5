package gallery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/qrx/internal/apperr"
	"github.com/starford/qrx/internal/models"
	"github.com/starford/qrx/internal/qrimage"
	"github.com/starford/qrx/internal/resolver"
	"github.com/starford/qrx/internal/testutil"
)

func testConfig(src, dist string) Config {
	return Config{
		SourceDir:   src,
		DistDir:     dist,
		ImageSubDir: "qrcodes",
		OutputFile:  "gallery.html",
		Naming:      models.DefaultNaming(),
		ExcludeDirs: []string{"private"},
		QR:          qrimage.DefaultOptions(),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func readPage(t *testing.T, res *Result) string {
	t.Helper()
	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	return string(data)
}

func TestBuild_EndToEnd(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"b/two.link":          "#b/two",
		"a/one.link":          "page?x=a=b&y=c d",
		"a/two.link":          "/abs/two",
		"demo.link":           "#cmd/open\nfile=report one.txt",
		"private/hidden.link": "#hidden",
		"notes.txt":           "ignored",
	})
	dist := filepath.Join(t.TempDir(), "dist")
	emitter := &testutil.FakeEmitter{}

	res, err := NewGenerator(testConfig(src, dist), WithEmitter(emitter), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)
	require.True(t, res.Written)
	require.Len(t, res.Records, 4)

	names := make([]string, len(res.Records))
	for i, r := range res.Records {
		names[i] = r.DisplayName
	}
	assert.Equal(t, []string{"a/one", "a/two", "b/two", "demo"}, names)

	assert.Equal(t, map[string]string{
		"qrcodes/a__one.png": "/#page?x=a=b&y=c d",
		"qrcodes/a__two.png": "/abs/two",
		"qrcodes/b__two.png": "/#b/two",
		"qrcodes/demo.png":   "/#cmd/open file=report one.txt",
	}, emitter.Calls())

	page := readPage(t, res)
	assert.Contains(t, page, `href="/#page?x=a%3Db&amp;y=c%20d"`)
	assert.Contains(t, page, `src="./qrcodes/a__one.png"`)
	assert.Contains(t, page, "<summary>SOURCE</summary>")
	assert.Contains(t, page, ".qr-img")
	assert.NotContains(t, page, MarkerCards)
	assert.NotContains(t, page, MarkerCSS)
	assert.NotContains(t, page, "private/hidden")
	assert.NotContains(t, emitter.Calls(), "qrcodes/private__hidden.png")

	iOne := strings.Index(page, ">a/one</a>")
	iTwo := strings.Index(page, ">a/two</a>")
	iB := strings.Index(page, ">b/two</a>")
	require.True(t, iOne >= 0 && iTwo >= 0 && iB >= 0, "all anchors rendered")
	assert.Less(t, iOne, iTwo)
	assert.Less(t, iTwo, iB)

	info, err := os.Stat(filepath.Join(dist, "qrcodes"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestBuild_RealQRImages(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"a/b.link": "page?x=1",
		"c.link":   "#c",
	})
	dist := t.TempDir()

	res, err := NewGenerator(testConfig(src, dist), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)
	require.True(t, res.Written)

	for _, name := range []string{"a__b.png", "c.png"} {
		data, err := os.ReadFile(filepath.Join(dist, "qrcodes", name))
		require.NoError(t, err, name)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is a PNG", name)
	}
}

func TestBuild_MissingSourceIsNoop(t *testing.T) {
	parent := t.TempDir()
	dist := filepath.Join(parent, "dist")

	res, err := NewGenerator(testConfig(filepath.Join(parent, "hypertext"), dist), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.Written)

	_, statErr := os.Stat(dist)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "dist must not be created")
}

func TestBuild_NoLinkFilesWritesNothing(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{"readme.md": "# nothing"})
	dist := t.TempDir()

	res, err := NewGenerator(testConfig(src, dist), WithEmitter(&testutil.FakeEmitter{}), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Written)
	assert.False(t, res.Skipped)
	assert.Empty(t, res.Records)

	_, statErr := os.Stat(filepath.Join(dist, "gallery.html"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "gallery.html must not be written")
}

func TestBuild_NameCollisionFlagged(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"a/b.link":  "#one",
		"a__b.link": "#two",
	})
	emitter := &testutil.FakeEmitter{}

	_, err := NewGenerator(testConfig(src, t.TempDir()), WithEmitter(emitter), WithLogger(quietLogger())).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNameCollision)
	assert.Contains(t, err.Error(), "a__b.png")
	assert.Empty(t, emitter.Calls(), "nothing is emitted before collisions are checked")
}

func TestBuild_OversizeFailsByDefault(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"small.link": "#s",
		"big.link":   "#big",
	})
	emitter := &testutil.FakeEmitter{Err: func(text string) error {
		if text == "/#big" {
			return fmt.Errorf("qrimage: %w", apperr.ErrPayloadTooLarge)
		}
		return nil
	}}
	dist := t.TempDir()

	_, err := NewGenerator(testConfig(src, dist), WithEmitter(emitter), WithLogger(quietLogger())).Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPayloadTooLarge)
	assert.Contains(t, err.Error(), "big.link")

	_, statErr := os.Stat(filepath.Join(dist, "gallery.html"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestBuild_OversizeSkipRendersPlaceholder(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"small.link": "#s",
		"big.link":   "#big",
	})
	emitter := &testutil.FakeEmitter{Err: func(text string) error {
		if text == "/#big" {
			return apperr.ErrPayloadTooLarge
		}
		return nil
	}}
	cfg := testConfig(src, t.TempDir())
	cfg.SkipOversize = true

	res, err := NewGenerator(cfg, WithEmitter(emitter), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)
	require.True(t, res.Written)
	assert.Equal(t, 1, res.Oversized)

	page := readPage(t, res)
	assert.Contains(t, page, "PAYLOAD TOO LARGE")
	assert.NotContains(t, page, `src="./qrcodes/big.png"`)
	assert.Contains(t, page, `src="./qrcodes/small.png"`)
}

func TestBuild_EmitterFailureAborts(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"a.link": "#a",
		"b.link": "#b",
	})
	boom := errors.New("disk full")
	emitter := &testutil.FakeEmitter{Err: func(string) error { return boom }}

	_, err := NewGenerator(testConfig(src, t.TempDir()), WithEmitter(emitter), WithLogger(quietLogger())).Build(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestBuild_InvalidUTF8Fails(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{"bad.link": "\xff\xfe#x"})

	_, err := NewGenerator(testConfig(src, t.TempDir()), WithEmitter(&testutil.FakeEmitter{}), WithLogger(quietLogger())).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid UTF-8")
}

func TestBuild_RawSourceEscaped(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"xss.link": "#x?q=<script>alert(1)</script>",
	})

	res, err := NewGenerator(testConfig(src, t.TempDir()), WithEmitter(&testutil.FakeEmitter{}), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)

	page := readPage(t, res)
	assert.NotContains(t, page, "<script>alert(1)")
	assert.Contains(t, page, "&lt;script&gt;alert(1)&lt;/script&gt;")
}

func TestBuild_DeterministicOutput(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{
		"z.link":     "#z",
		"m/n.link":   "n?k=v",
		"a/b/c.link": "/c",
	})

	var pages []string
	for i := 0; i < 3; i++ {
		res, err := NewGenerator(testConfig(src, t.TempDir()), WithEmitter(&testutil.FakeEmitter{}), WithLogger(quietLogger())).Build(context.Background())
		require.NoError(t, err)
		pages = append(pages, readPage(t, res))
	}
	assert.Equal(t, pages[0], pages[1])
	assert.Equal(t, pages[1], pages[2])
}

func TestBuild_LayoutOverride(t *testing.T) {
	src := testutil.SourceTree(t, map[string]string{"a.link": "#a"})
	dir := t.TempDir()
	layout := filepath.Join(dir, "layout.html")
	styles := filepath.Join(dir, "styles.css")
	require.NoError(t, os.WriteFile(layout, []byte("<style><!-- INJECT_CSS --></style><main><!-- INJECT_CARDS --></main>"), 0o644))
	require.NoError(t, os.WriteFile(styles, []byte("body{color:red}"), 0o644))

	cfg := testConfig(src, t.TempDir())
	cfg.LayoutFile = layout
	cfg.StylesFile = styles

	res, err := NewGenerator(cfg, WithEmitter(&testutil.FakeEmitter{}), WithLogger(quietLogger())).Build(context.Background())
	require.NoError(t, err)

	page := readPage(t, res)
	assert.True(t, strings.HasPrefix(page, "<style>body{color:red}</style><main>"))
	assert.Contains(t, page, ">a</a>")
}

func TestLoadLayout_MissingMarker(t *testing.T) {
	layout := filepath.Join(t.TempDir(), "layout.html")
	require.NoError(t, os.WriteFile(layout, []byte("<main></main>"), 0o644))

	_, err := LoadLayout(layout, "")
	assert.Error(t, err)
}

func TestSortRecords(t *testing.T) {
	records := []models.LinkRecord{
		{DisplayName: "b/two"},
		{DisplayName: "a/one"},
		{DisplayName: "a/two"},
	}
	SortRecords(records)

	got := []string{records[0].DisplayName, records[1].DisplayName, records[2].DisplayName}
	assert.Equal(t, []string{"a/one", "a/two", "b/two"}, got)
}

func TestSortRecords_LocaleAware(t *testing.T) {
	records := []models.LinkRecord{
		{DisplayName: "b"},
		{DisplayName: "B"},
		{DisplayName: "é"},
		{DisplayName: "a"},
	}
	SortRecords(records)

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.DisplayName
	}
	// Byte order would put "B" first and "é" last after "b".
	assert.Equal(t, "a", got[0])
	assert.Equal(t, "é", got[3])
	assert.ElementsMatch(t, []string{"b", "B"}, got[1:3])
}

func TestCheckCollisions(t *testing.T) {
	n := models.DefaultNaming()
	assert.NoError(t, CheckCollisions([]string{"a/b.link", "a/c.link", "b.link"}, n))
	assert.ErrorIs(t, CheckCollisions([]string{"x/y/z.link", "x__y/z.link"}, n), apperr.ErrNameCollision)
}

func TestRenderCard_HrefAttributeNormalized(t *testing.T) {
	rec := models.NewLinkRecord("demo.link", "#cmd/open\nfile=report one.txt", models.DefaultNaming(), resolver.Resolve)
	require.Equal(t, "/#cmd/open file=report one.txt", rec.Link.Href)

	card, err := RenderCard(rec, "qrcodes")
	require.NoError(t, err)

	// Spaces inside URL attributes are percent-encoded on output.
	assert.Contains(t, card, `<a href="/#cmd/open%20file=report%20one.txt">demo</a>`)
	assert.Contains(t, card, `src="./qrcodes/demo.png"`)
	assert.NotContains(t, card, `href="/#cmd/open file`)
}
