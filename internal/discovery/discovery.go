// Package discovery finds Python sources under a directory using glob
// include and ignore rules.
package discovery

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// StateDir is always skipped.
const StateDir = ".flowmark"

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Finder matches files against include and ignore patterns.
type Finder struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
}

// New compiles the patterns for rootDir.
func New(rootDir string, includes, ignores []string) (*Finder, error) {
	f := &Finder{rootDir: rootDir}

	var err error
	if f.includes, err = compile(includes); err != nil {
		return nil, err
	}
	if f.ignorePatterns, err = compile(ignores); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Root returns the directory the finder walks.
func (f *Finder) Root() string {
	return f.rootDir
}

// Discover walks the tree and returns matching files in lexical order.
func (f *Finder) Discover() ([]string, error) {
	files := []string{}

	err := filepath.Walk(f.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && f.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !f.shouldIgnore(relPath) && matchesAnyPattern(relPath, f.includes) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)
	return files, err
}

// Matches reports whether path (absolute or relative to the root) is
// included and not ignored.
func (f *Finder) Matches(path string) bool {
	relPath := path
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(f.rootDir, path)
		if err != nil {
			return false
		}
		relPath = rel
	}
	relPath = filepath.ToSlash(relPath)

	if f.shouldIgnore(relPath) {
		return false
	}
	return matchesAnyPattern(relPath, f.includes)
}

func (f *Finder) shouldIgnore(relPath string) bool {
	if strings.HasPrefix(relPath, StateDir+"/") || relPath == StateDir {
		return true
	}

	if matchesAnyPattern(relPath, f.ignorePatterns) {
		return true
	}

	// "venv" should match a "venv/**" rule.
	return matchesAnyPattern(relPath+"/**", f.ignorePatterns)
}

// matchesAnyPattern also lets "**/x" match x at the root.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified := strings.TrimPrefix(cp.pattern, "**/")
			if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
				return true
			}
		}
	}

	return false
}
