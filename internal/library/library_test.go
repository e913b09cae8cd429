package library

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func scanPaths(t *testing.T, opts Options) []string {
	t.Helper()
	s, err := NewScanner(opts)
	require.NoError(t, err)

	var paths []string
	require.NoError(t, s.Scan(func(e Entry) error {
		paths = append(paths, filepath.ToSlash(e.RelPath))
		return nil
	}))
	sort.Strings(paths)
	return paths
}

func TestScanFindsSupportedDocuments(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", "hello")
	writeFile(t, root, "docs/readme.md", "# docs")
	writeFile(t, root, "manual.pdf", "%PDF-1.4")
	writeFile(t, root, "image.png", "not a document")
	writeFile(t, root, "code.go", "package main")

	paths := scanPaths(t, Options{Root: root})
	assert.Equal(t, []string{"docs/readme.md", "manual.pdf", "notes.txt"}, paths)
}

func TestScanSkipsHiddenAndIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "keep")
	writeFile(t, root, ".hidden.txt", "hidden")
	writeFile(t, root, ".git/config.txt", "git internals")
	writeFile(t, root, "tmp/scratch.txt", "scratch")

	paths := scanPaths(t, Options{
		Root:           root,
		IgnorePatterns: []string{"tmp/"},
	})
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.txt", "tiny")
	writeFile(t, root, "large.txt", strings.Repeat("x", 1000))

	s, err := NewScanner(Options{Root: root, MaxFileSize: 100})
	require.NoError(t, err)

	var paths []string
	require.NoError(t, s.Scan(func(e Entry) error {
		paths = append(paths, e.RelPath)
		return nil
	}))
	assert.Equal(t, []string{"small.txt"}, paths)
	assert.Equal(t, 1, s.Stats().Found)
	assert.Equal(t, 1, s.Stats().Skipped)
}

func TestScanRejectsMissingRoot(t *testing.T) {
	_, err := NewScanner(Options{Root: "/does/not/exist"})
	assert.Error(t, err)
}

func TestScanRejectsFileRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.txt", "x")

	_, err := NewScanner(Options{Root: filepath.Join(root, "file.txt")})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScanStopsOnCallbackError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")
	writeFile(t, root, "b.txt", "b")

	s, err := NewScanner(Options{Root: root})
	require.NoError(t, err)

	calls := 0
	err = s.Scan(func(e Entry) error {
		calls++
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, calls)
}
