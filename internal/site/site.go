// Package site finds the pages of a site tree and checks that every
// department has its required pages.
package site

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var (
	// DefaultInclude selects the top-level, department and recruiter pages.
	DefaultInclude = []string{"*.html", "interview/*/*.html", "recruiter/*.html"}

	// DefaultExclude skips the standalone robot demos and test pages.
	DefaultExclude = []string{"**/robot-animation/**", "**/*robot-test*", "**/test*.html"}
)

// Discover returns the files under root matching any include pattern and no
// exclude pattern, as sorted, de-duplicated slash paths relative to root.
func Discover(root string, include, exclude []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("site root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("site root %s is not a directory", root)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	include = normalizePatterns(include)
	exclude = normalizePatterns(exclude)

	seen := make(map[string]bool)
	var out []string
	for _, pattern := range include {
		matches, err := doublestar.FilepathGlob(filepath.Join(absRoot, filepath.FromSlash(pattern)), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("include %q: %w", pattern, err)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(absRoot, m)
			if err != nil {
				return nil, err
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] || matchesAny(exclude, rel) {
				continue
			}
			seen[rel] = true
			out = append(out, rel)
		}
	}
	slices.Sort(out)
	return out, nil
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// DepartmentOf returns the department code of a page under
// interview/<dept>/, or "" for any other page.
func DepartmentOf(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || parts[0] != "interview" {
		return ""
	}
	return parts[1]
}

// Missing is a required page that does not exist.
type Missing struct {
	Department string
	Page       string
}

// Path returns the page path relative to the site root.
func (m Missing) Path() string {
	return "interview/" + m.Department + "/" + m.Page
}

// Verify reports every required page missing from a department directory.
func Verify(root string, departments, pages []string) ([]Missing, error) {
	var missing []Missing
	for _, dept := range departments {
		for _, page := range pages {
			m := Missing{Department: dept, Page: page}
			_, err := os.Stat(filepath.Join(root, filepath.FromSlash(m.Path())))
			switch {
			case errors.Is(err, fs.ErrNotExist):
				missing = append(missing, m)
			case err != nil:
				return nil, fmt.Errorf("stat %s: %w", m.Path(), err)
			}
		}
	}
	return missing, nil
}
