// Package executor carries out a Plan: either placing the original file at
// the target path via link/copy/move, or invoking mkvmerge with a
// precisely constructed argument list (spec.md §4.F).
//
// The mockable process-runner seam follows marcopaganini-mkvtool's
// run.go: a small runner interface with a real exec.Command
// implementation and a fake that only records the command.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/stream"
)

// Runner executes mkvmerge. FakeRunner stands in for it in tests. Dry-run
// mode does not go through a Runner: Execute returns before invoking one,
// and the planned mkvmerge argument list is not logged.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner runs real processes, capturing stdout/stderr and the exit
// code, and propagating ctx cancellation (SIGINT) to the child process
// per spec.md §5.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
			err = nil
		}
	}
	return stdout.String(), stderr.String(), exitCode, err
}

// FakeRunner only records the command it would have run (through Log, when
// set) and reports success; used by tests, mirroring the teacher pack's
// dry-run runner pattern.
type FakeRunner struct {
	Log func(name string, args []string)
}

func (f FakeRunner) Run(_ context.Context, name string, args ...string) (string, string, int, error) {
	if f.Log != nil {
		f.Log(name, args)
	}
	return "", "", 0, nil
}

// Result summarizes the outcome of executing one file's Plan.
type Result struct {
	Action          planner.Action
	DefaultsChanged bool
	Warning         string // non-empty on mkvmerge's "warning" exit code 1
}

// Execute carries out plan against source, placing (or muxing) the result
// at target. streams is the original file's probed track list, needed to
// build --default-track flags correctly.
func Execute(ctx context.Context, r Runner, plan planner.Plan, streams []stream.Stream, source, target string, overwrite, dryRun bool) (Result, error) {
	if plan.Action == planner.NoProcessingNeeded {
		return executeTransfer(ctx, r, plan, source, target, overwrite, dryRun)
	}
	return executeMkvmerge(ctx, r, plan, streams, source, target, overwrite, dryRun)
}

func executeTransfer(ctx context.Context, r Runner, plan planner.Plan, source, target string, overwrite, dryRun bool) (Result, error) {
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return Result{}, slimerr.ForFile(slimerr.TargetExists, target, "target already exists", nil)
		}
	}

	if dryRun {
		return Result{Action: planner.NoProcessingNeeded}, nil
	}

	var err error
	switch plan.TransferMode {
	case planner.HardLink:
		err = os.Link(source, target)
		if err != nil {
			return Result{}, slimerr.ForFile(slimerr.IoError, source, "hard link failed", err)
		}
	case planner.HardLinkOrCopy:
		if linkErr := os.Link(source, target); linkErr != nil {
			if err = copyFile(source, target); err != nil {
				return Result{}, slimerr.ForFile(slimerr.IoError, source, "hard link and copy fallback both failed", err)
			}
		}
	case planner.Copy:
		if err = copyFile(source, target); err != nil {
			return Result{}, slimerr.ForFile(slimerr.IoError, source, "copy failed", err)
		}
	case planner.Move:
		if renameErr := os.Rename(source, target); renameErr != nil {
			if isCrossDevice(renameErr) {
				if err = copyFile(source, target); err != nil {
					return Result{}, slimerr.ForFile(slimerr.IoError, source, "cross-device move: copy failed", err)
				}
				if err = os.Remove(source); err != nil {
					return Result{}, slimerr.ForFile(slimerr.IoError, source, "cross-device move: removing source failed", err)
				}
			} else {
				return Result{}, slimerr.ForFile(slimerr.IoError, source, "move failed", renameErr)
			}
		}
	}

	_ = ctx
	return Result{Action: planner.NoProcessingNeeded}, nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return false
}

func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func executeMkvmerge(ctx context.Context, r Runner, plan planner.Plan, streams []stream.Stream, source, target string, overwrite, dryRun bool) (Result, error) {
	if !overwrite {
		if _, err := os.Stat(target); err == nil {
			return Result{}, slimerr.ForFile(slimerr.TargetExists, target, "target already exists", nil)
		}
	}

	args := BuildMkvmergeArgs(plan, streams, target, source)

	if dryRun {
		return Result{Action: planner.RunMkvmerge, DefaultsChanged: defaultsChanged(plan, streams)}, nil
	}

	stdout, stderr, exitCode, err := r.Run(ctx, "mkvmerge", args...)
	_ = stdout

	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return Result{}, slimerr.ForFile(slimerr.DependencyMissing, source, "mkvmerge binary not found", err)
		}
		removePartial(target)
		return Result{}, slimerr.ForFile(slimerr.MkvmergeFailed, source, "failed to invoke mkvmerge", err)
	}

	switch exitCode {
	case 0:
		return Result{Action: planner.RunMkvmerge, DefaultsChanged: defaultsChanged(plan, streams)}, nil
	case 1:
		// mkvmerge's "warning" exit: treated as success, per spec.md §4.F
		// and the open question in §9 — it must not block RenameRequested.
		return Result{
			Action:          planner.RunMkvmerge,
			DefaultsChanged: defaultsChanged(plan, streams),
			Warning:         slimerr.Summarize(stderr),
		}, nil
	default:
		removePartial(target)
		return Result{}, slimerr.ForFile(slimerr.MkvmergeFailed, source,
			fmt.Sprintf("mkvmerge exited %d: %s", exitCode, slimerr.Summarize(stderr)), nil)
	}
}

func removePartial(path string) {
	if _, err := os.Stat(path); err == nil {
		os.Remove(path)
	}
}

func defaultsChanged(plan planner.Plan, streams []stream.Stream) bool {
	for _, s := range streams {
		idx, ok := plan.NewDefaults[s.Kind]
		want := ok && idx == s.Index
		if s.Default != want {
			return true
		}
	}
	return false
}

// BuildMkvmergeArgs constructs the mkvmerge argument list per spec.md
// §4.F: output path, per-kind track restriction (falling back to that
// kind's --no-<kind> flag when none of its tracks survived selection, so
// mkvmerge's keep-all default doesn't leak dropped tracks back in),
// --default-track flags for every kept track of a kind that has any
// default candidate, and finally the source path.
func BuildMkvmergeArgs(plan planner.Plan, streams []stream.Stream, target, source string) []string {
	kept := map[int]bool{}
	for _, idx := range plan.KeptIndices {
		kept[idx] = true
	}

	byKind := map[stream.Kind][]int{}
	for _, s := range streams {
		if kept[s.Index] {
			byKind[s.Kind] = append(byKind[s.Kind], s.Index)
		}
	}

	args := []string{"-o", target}

	args = append(args, trackFlag("--audio-tracks", "--no-audio", byKind[stream.Audio], anyOfKind(streams, stream.Audio))...)
	args = append(args, trackFlag("--subtitle-tracks", "--no-subtitles", byKind[stream.Subtitle], anyOfKind(streams, stream.Subtitle))...)
	args = append(args, trackFlag("--video-tracks", "--no-video", byKind[stream.Video], anyOfKind(streams, stream.Video))...)

	for _, s := range streams {
		if !kept[s.Index] {
			continue
		}
		if _, hasDefaultCandidate := plan.NewDefaults[s.Kind]; !hasDefaultCandidate {
			continue
		}
		flag := "no"
		if plan.NewDefaults[s.Kind] == s.Index {
			flag = "yes"
		}
		args = append(args, "--default-track", fmt.Sprintf("%d:%s", s.Index, flag))
	}

	args = append(args, source)
	return args
}

// trackFlag renders a --<kind>-tracks flag, or the kind's --no-<kind> flag
// when the file has tracks of that kind but none of them survived
// selection — mkvmerge has no "keep none" track-ID syntax, so dropping a
// kind entirely must use its dedicated --no-audio/--no-subtitles/--no-video
// flag instead, matching cuivienor-media-pipeline's mkvmerge argument
// builder. A kind absent from the file entirely gets no flag at all, since
// mkvmerge already keeps nothing of what isn't there.
func trackFlag(tracksFlag, noneFlag string, ids []int, kindPresent bool) []string {
	if len(ids) == 0 {
		if !kindPresent {
			return nil
		}
		return []string{noneFlag}
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return []string{tracksFlag, strings.Join(parts, ",")}
}

func anyOfKind(streams []stream.Stream, kind stream.Kind) bool {
	for _, s := range streams {
		if s.Kind == kind {
			return true
		}
	}
	return false
}
