// Package scanner finds CSV bank export files under an input path.
package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Scanner walks a directory tree (or accepts a single file) and collects
// importable exports.
type Scanner struct {
	root string
}

// New creates a scanner for the given root path.
func New(root string) *Scanner {
	return &Scanner{root: root}
}

// Scan returns the paths of all CSV files under the root, sorted for a
// deterministic import order. A root that is itself a file is returned as
// a single-element batch.
func (s *Scanner) Scan() ([]string, error) {
	root := s.expandHome(s.root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", root, err)
	}

	if !info.IsDir() {
		if !isExportFile(root) {
			return nil, fmt.Errorf("%s is not a CSV file", root)
		}
		return []string{root}, nil
	}

	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !isExportFile(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// isExportFile checks if the file is a supported export format.
func isExportFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".csv"
}

// expandHome expands ~ to the home directory.
func (s *Scanner) expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
