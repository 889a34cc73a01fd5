// Package scanner discovers link files under a source directory.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/starford/qrx/internal/apperr"
)

// Matcher reports whether a slash-separated relative path is ignored.
type Matcher interface {
	MatchesPath(path string) bool
}

// Scanner walks a directory tree collecting files with Suffix.
type Scanner struct {
	// Suffix marks a file as a link file.
	Suffix string
	// Exclude lists directory names skipped at any depth.
	Exclude []string
	// IgnoreFile is an optional gitignore-style file at the scan root.
	IgnoreFile string
}

// New creates a Scanner.
func New(suffix string, exclude []string, ignoreFile string) *Scanner {
	return &Scanner{Suffix: suffix, Exclude: exclude, IgnoreFile: ignoreFile}
}

// Scan returns the absolute paths of all link files under root, depth
// first. Symlinked directories are followed and reported under their link
// path. Sibling order is not significant. Any filesystem error, including
// a symlink cycle, aborts the scan.
func (s *Scanner) Scan(root string) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("scanner: resolve root: %w", err)
	}

	matcher, err := s.loadIgnore(abs)
	if err != nil {
		return nil, err
	}

	w := &walker{scanner: s, root: abs, matcher: matcher, active: make(map[string]bool)}
	if err := w.dir(abs); err != nil {
		return nil, fmt.Errorf("scanner: walk %s: %w", abs, err)
	}
	return w.out, nil
}

type walker struct {
	scanner *Scanner
	root    string
	matcher Matcher
	// active holds the resolved paths of the directories currently being
	// walked. Meeting one again means a symlink loops back to an ancestor.
	active map[string]bool
	out    []string
}

func (w *walker) dir(p string) error {
	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		return err
	}
	if w.active[resolved] {
		return fmt.Errorf("%s: %w", p, apperr.ErrSymlinkCycle)
	}
	w.active[resolved] = true
	defer delete(w.active, resolved)

	entries, err := os.ReadDir(p)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := filepath.Join(p, e.Name())
		rel, err := filepath.Rel(w.root, child)
		if err != nil {
			return err
		}

		isDir := e.IsDir()
		if e.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(child)
			if err != nil {
				return err
			}
			isDir = info.IsDir()
		}

		if isDir {
			if slices.Contains(w.scanner.Exclude, e.Name()) || ignored(w.matcher, rel+"/") {
				continue
			}
			if err := w.dir(child); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(e.Name(), w.scanner.Suffix) || ignored(w.matcher, rel) {
			continue
		}
		w.out = append(w.out, child)
	}
	return nil
}

func (s *Scanner) loadIgnore(root string) (Matcher, error) {
	if s.IgnoreFile == "" {
		return nil, nil
	}
	p := filepath.Join(root, s.IgnoreFile)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanner: stat ignore file: %w", err)
	}
	m, err := ignore.CompileIgnoreFile(p)
	if err != nil {
		return nil, fmt.Errorf("scanner: read ignore file %s: %w", p, err)
	}
	return m, nil
}

func ignored(m Matcher, rel string) bool {
	if m == nil {
		return false
	}
	return m.MatchesPath(filepath.ToSlash(rel))
}
