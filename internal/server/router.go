// Package server serves the built gallery during development.
package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// reloadSnippet reloads the page whenever a rebuild finishes.
const reloadSnippet = `<script>new EventSource('/events').addEventListener('gallery.rebuilt', () => location.reload())</script>`

// NewRouter creates a chi router serving distDir. The gallery page at
// outputFile gets the live-reload snippet injected. events, if non-nil,
// is mounted at GET /events.
func NewRouter(distDir, outputFile string, events http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	page := "/" + filepath.ToSlash(outputFile)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, page, http.StatusFound)
	})
	r.Get(page, galleryHandler(filepath.Join(distDir, outputFile)))

	r.Handle("/*", http.FileServer(http.Dir(distDir)))
	return r
}

func galleryHandler(file string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				http.Error(w, "gallery not built yet: no link files found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(injectReload(string(data))))
	}
}

// injectReload inserts the reload snippet before the last </body>, or
// appends it when there is none.
func injectReload(html string) string {
	i := strings.LastIndex(html, "</body>")
	if i < 0 {
		return html + reloadSnippet
	}
	return html[:i] + reloadSnippet + html[i:]
}
