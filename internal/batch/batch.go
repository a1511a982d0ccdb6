// Package batch discovers MKV files under a directory and drives the
// per-file pipeline in internal/app across all of them, accumulating
// errors instead of aborting (spec.md §4.H). Structured after the donor
// pack's backmassage-Muxmaster pipeline.Run: discover, loop sequentially,
// summarize — generalized from that package's single fixed input root to
// spec.md's recursive/non-recursive and glob-filtered discovery rules.
package batch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mkvslimmer/internal/app"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/sonarr"
)

var mkvExtensions = map[string]bool{
	".mkv": true,
	".mka": true,
	".mks": true,
}

// Job is one file queued for processing: its source path and its path
// relative to the input root (used to mirror subtree structure under the
// target directory).
type Job struct {
	Source  string
	RelPath string
}

// Discover enumerates the files under root per spec.md §4.H points 1-3.
// canonicalTarget is skipped during recursive traversal so a target
// directory nested under root is never walked into. pathguard.Validate
// already rejects such a target for every directory run; this is a second
// guard.
func Discover(root string, recursive bool, glob string, canonicalTarget string) ([]Job, int, error) {
	var jobs []Job
	skipped := 0

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, 0, slimerr.ForFile(slimerr.InputInvalid, root, "cannot list directory", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			full := filepath.Join(root, name)
			info, err := os.Stat(full)
			if err != nil || info.IsDir() {
				continue
			}
			if !extensionAndGlobMatch(full, name, glob) {
				continue
			}
			if !isValidFile(full) {
				skipped++
				continue
			}
			jobs = append(jobs, Job{Source: full, RelPath: name})
		}
		return jobs, skipped, nil
	}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root {
				if canon, cerr := filepath.EvalSymlinks(path); cerr == nil && canon == canonicalTarget {
					return filepath.SkipDir
				}
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if !extensionAndGlobMatch(path, rel, glob) {
			return nil
		}
		if !isValidFile(path) {
			skipped++
			return nil
		}
		jobs = append(jobs, Job{Source: path, RelPath: rel})
		return nil
	})
	if err != nil {
		return nil, 0, slimerr.ForFile(slimerr.InputInvalid, root, "cannot walk directory", err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].RelPath < jobs[j].RelPath })
	return jobs, skipped, nil
}

// extensionAndGlobMatch applies the extension and (optional) glob filters
// from spec.md §4.H point 2. matchAgainst is the file name in
// non-recursive mode or its root-relative path in recursive mode.
func extensionAndGlobMatch(fullPath, matchAgainst, glob string) bool {
	if !mkvExtensions[strings.ToLower(filepath.Ext(fullPath))] {
		return false
	}
	if glob != "" {
		ok, err := filepath.Match(glob, matchAgainst)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// isValidFile is the "lightweight validity check" from spec.md §4.H point
// 3: readable and non-empty. Extension was already checked by
// extensionAndGlobMatch.
func isValidFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}

	var probe [1]byte
	if _, err := f.Read(probe[:]); err != nil && err != io.EOF {
		return false
	}
	return true
}

// FileResult is one job's outcome, successful or not.
type FileResult struct {
	Job     Job
	Outcome app.Outcome
	Err     error
}

// Summary aggregates the results of a batch run.
type Summary struct {
	Results []FileResult
	OK      int
	Skipped int
	Failed  int
}

// Success reports whether every job in the summary completed without
// error (spec.md §4.H point 5).
func (s Summary) Success() bool { return s.Failed == 0 }

// Run drives every discovered job through the per-file pipeline,
// sequentially, accumulating failures instead of aborting. stdout receives
// Sonarr MoveStatus lines; onResult (optional) is called after each job so
// the caller can render per-file progress to stderr.
func Run(ctx context.Context, deps app.Deps, jobs []Job, skippedAtDiscovery int, targetRoot string, stdout io.Writer, onResult func(FileResult)) Summary {
	summary := Summary{Skipped: skippedAtDiscovery}

	for _, job := range jobs {
		if ctx.Err() != nil {
			summary.Results = append(summary.Results, FileResult{Job: job, Err: slimerr.ForFile(slimerr.Interrupted, job.Source, "interrupted before processing", ctx.Err())})
			summary.Failed++
			break
		}

		target := filepath.Join(targetRoot, job.RelPath)
		if dir := filepath.Dir(target); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				res := FileResult{Job: job, Err: slimerr.ForFile(slimerr.IoError, job.Source, "cannot create target directory", err)}
				summary.Results = append(summary.Results, res)
				summary.Failed++
				if onResult != nil {
					onResult(res)
				}
				continue
			}
		}

		outcome, err := app.ProcessFile(ctx, deps, job.Source, target)
		res := FileResult{Job: job, Outcome: outcome, Err: err}

		if err != nil {
			summary.Failed++
		} else {
			summary.OK++
			if outcome.MoveStatus != "" {
				sonarr.Emit(stdout, outcome.MoveStatus)
			}
		}

		summary.Results = append(summary.Results, res)
		if onResult != nil {
			onResult(res)
		}
	}

	return summary
}
