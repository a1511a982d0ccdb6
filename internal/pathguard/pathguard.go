// Package pathguard validates the (source, target) pair before any work
// begins (spec.md §4.G). The core containment checks are grounded in the
// donor pack's backmassage-Muxmaster config.ValidatePaths, generalized
// from "output not inside input" to the full relationship table spec.md
// requires (including the recursive re-ingestion case and the single-file
// combination table).
package pathguard

import (
	"os"
	"path/filepath"
	"strings"

	"mkvslimmer/internal/slimerr"
)

// Combination describes how a validated (source, target) pair should be
// driven: as a single file or as a batch.
type Combination int

const (
	FileToFile Combination = iota
	FileToDirectory
	DirectoryToDirectory
)

// Result is the outcome of a successful Validate call.
type Result struct {
	CanonicalSource string
	CanonicalTarget string
	Combination     Combination
}

// Validate applies the full relationship table from spec.md §4.G. recursive
// indicates a recursive batch run (only meaningful when source is a
// directory).
func Validate(source, target string, recursive bool) (*Result, error) {
	srcInfo, err := os.Stat(source)
	if err != nil {
		return nil, slimerr.ForFile(slimerr.PathGuard, source, "source does not exist", err)
	}

	canonSrc, err := canonicalize(source)
	if err != nil {
		return nil, slimerr.ForFile(slimerr.PathGuard, source, "cannot canonicalize source", err)
	}
	canonTgt, err := canonicalizeMaybeMissing(target)
	if err != nil {
		return nil, slimerr.ForFile(slimerr.PathGuard, target, "cannot canonicalize target", err)
	}

	tgtInfo, tgtErr := os.Stat(target)
	tgtExists := tgtErr == nil

	if srcInfo.IsDir() {
		if tgtExists && !tgtInfo.IsDir() {
			return nil, slimerr.New(slimerr.PathGuard, "source is a directory and target is an existing file")
		}
		if canonSrc == canonTgt {
			return nil, slimerr.New(slimerr.PathGuard, "source and target are the same directory")
		}
		if isDescendant(canonTgt, canonSrc) {
			return nil, slimerr.New(slimerr.PathGuard, "target is a descendant of source")
		}
		if recursive && isDescendant(canonSrc, canonTgt) {
			return nil, slimerr.New(slimerr.PathGuard, "source is a descendant of target in a recursive run (would re-ingest outputs)")
		}
		return &Result{CanonicalSource: canonSrc, CanonicalTarget: canonTgt, Combination: DirectoryToDirectory}, nil
	}

	// Single-file source.
	if canonSrc == canonTgt {
		return nil, slimerr.New(slimerr.PathGuard, "source and target are the same file")
	}
	if tgtExists && tgtInfo.IsDir() {
		return &Result{CanonicalSource: canonSrc, CanonicalTarget: canonTgt, Combination: FileToDirectory}, nil
	}
	return &Result{CanonicalSource: canonSrc, CanonicalTarget: canonTgt, Combination: FileToFile}, nil
}

// canonicalize resolves an existing path to its absolute, symlink-free form.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// canonicalizeMaybeMissing canonicalizes a path that may not exist yet by
// resolving its nearest existing ancestor and re-appending the uncreated
// suffix (spec.md §4.G).
func canonicalizeMaybeMissing(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(abs); err == nil {
		return canonicalize(abs)
	}

	var suffix []string
	cur := abs
	for {
		if _, err := os.Stat(cur); err == nil {
			resolved, err := filepath.EvalSymlinks(cur)
			if err != nil {
				return "", err
			}
			for i := len(suffix) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, suffix[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Reached filesystem root without finding an existing ancestor.
			return abs, nil
		}
		suffix = append(suffix, filepath.Base(cur))
		cur = parent
	}
}

// isDescendant reports whether path is equal to or nested under ancestor.
func isDescendant(path, ancestor string) bool {
	if path == ancestor {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path+sep, ancestor+sep)
}
