// Package ingest discovers input files for the pipeline, either by expanding
// directories once or by watching them for new arrivals.
package ingest

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/dataset-generator/constants"
)

type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// ExpandPaths replaces every directory argument with the supported files found
// beneath it, in lexical order. Files and paths that do not exist are passed
// through untouched so the pipeline reports them as records.
func ExpandPaths(paths []string, skipHidden bool) ([]string, DirStats, error) {
	var out []string
	var stats DirStats

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			out = append(out, p)
			continue
		}
		found, err := walkDir(p, skipHidden, &stats)
		if err != nil {
			return out, stats, err
		}
		out = append(out, found...)
	}
	return out, stats, nil
}

func walkDir(root string, skipHidden bool, stats *DirStats) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			stats.Failed++
			if errors.Is(walkErr, fs.ErrPermission) {
				return nil
			}
			return walkErr
		}
		if skipHidden && path != root && IsHidden(path) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !constants.IsAllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++
		found = append(found, path)
		return nil
	})
	sort.Strings(found)
	return found, err
}

// IsHidden reports whether the last path element starts with a dot.
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
