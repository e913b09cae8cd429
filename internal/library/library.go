// Package library scans directories for ingestable documents.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/ragout/ragout/internal/extract"
)

// Entry is one ingestable document found during a scan.
type Entry struct {
	Path    string // Absolute path to the file
	RelPath string // Path relative to the scan root
	Size    int64  // File size in bytes
}

// Options configures a directory scan.
type Options struct {
	// Root is the directory to scan.
	Root string

	// MaxFileSize skips files larger than this many bytes. Zero means no
	// limit.
	MaxFileSize int64

	// IgnorePatterns are gitignore-syntax patterns to skip.
	IgnorePatterns []string

	// IncludeHidden includes hidden files and directories.
	IncludeHidden bool
}

// Stats summarizes a completed scan.
type Stats struct {
	Found   int // Documents found
	Skipped int // Files skipped (pattern, size, or unsupported format)
}

// Scanner walks a directory tree and yields supported documents. Formats are
// decided by the extract package; everything else is skipped silently.
type Scanner struct {
	opts    Options
	ignorer *gitignore.GitIgnore
	stats   Stats
}

// NewScanner creates a scanner rooted at opts.Root.
func NewScanner(opts Options) (*Scanner, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}
	opts.Root = root

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path does not exist: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path is not a directory: %s", root)
	}

	return &Scanner{
		opts:    opts,
		ignorer: gitignore.CompileIgnoreLines(opts.IgnorePatterns...),
	}, nil
}

// Scan walks the tree and calls fn for each supported document. The scan
// stops if fn returns an error.
func (s *Scanner) Scan(fn func(Entry) error) error {
	s.stats = Stats{}

	return filepath.WalkDir(s.opts.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Debug("Error accessing path", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(s.opts.Root, path)
		if err != nil {
			relPath = path
		}

		if d.IsDir() {
			if s.shouldSkipDir(d.Name(), relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.shouldSkipFile(d.Name(), relPath) {
			s.stats.Skipped++
			return nil
		}

		if !extract.Supported(path) {
			s.stats.Skipped++
			return nil
		}

		info, err := d.Info()
		if err != nil {
			log.Debug("Failed to get file info", "path", path, "error", err)
			return nil
		}

		if s.opts.MaxFileSize > 0 && info.Size() > s.opts.MaxFileSize {
			log.Debug("Skipping oversized file", "path", relPath, "size", info.Size())
			s.stats.Skipped++
			return nil
		}

		s.stats.Found++
		return fn(Entry{
			Path:    path,
			RelPath: relPath,
			Size:    info.Size(),
		})
	})
}

// Stats returns statistics from the last scan.
func (s *Scanner) Stats() Stats {
	return s.stats
}

func (s *Scanner) shouldSkipDir(name, relPath string) bool {
	if relPath == "." {
		return false
	}
	if name == ".git" {
		return true
	}
	if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return s.ignorer.MatchesPath(relPath + "/")
}

func (s *Scanner) shouldSkipFile(name, relPath string) bool {
	if !s.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	return s.ignorer.MatchesPath(relPath)
}
