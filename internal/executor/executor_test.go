package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/stream"
)

func TestBuildMkvmergeArgsKeepsOrderAndDrops(t *testing.T) {
	streams := []stream.Stream{
		{Index: 0, Kind: stream.Video},
		{Index: 1, Kind: stream.Audio, Default: true},
		{Index: 2, Kind: stream.Audio},
		{Index: 3, Kind: stream.Subtitle},
	}
	plan := planner.Plan{
		KeptIndices: []int{0, 2},
		NewDefaults: map[stream.Kind]int{stream.Audio: 2},
	}
	args := BuildMkvmergeArgs(plan, streams, "/out/x.mkv", "/in/x.mkv")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-o /out/x.mkv") {
		t.Errorf("missing -o flag: %v", args)
	}
	if !strings.Contains(joined, "--audio-tracks 2") {
		t.Errorf("expected audio-tracks 2, got %v", args)
	}
	if !strings.Contains(joined, "--no-subtitles") {
		t.Errorf("expected --no-subtitles for a fully dropped kind, got %v", args)
	}
	if !strings.Contains(joined, "--default-track 2:yes") {
		t.Errorf("expected new audio default 2:yes, got %v", args)
	}
	if strings.Contains(joined, "--default-track 1:") {
		t.Errorf("dropped stream 1 must not get a --default-track flag: %v", args)
	}
	if args[len(args)-1] != "/in/x.mkv" {
		t.Errorf("source path must be last: %v", args)
	}
}

func TestTrackFlagFallsBackToNoFlagWhenKindFullyDropped(t *testing.T) {
	if got := trackFlag("--subtitle-tracks", "--no-subtitles", nil, true); len(got) != 1 || got[0] != "--no-subtitles" {
		t.Errorf("expected --no-subtitles, got %v", got)
	}
	if got := trackFlag("--subtitle-tracks", "--no-subtitles", nil, false); got != nil {
		t.Errorf("expected no flag when kind absent entirely, got %v", got)
	}
	if got := trackFlag("--audio-tracks", "--no-audio", []int{3, 1, 2}, true); got[0] != "--audio-tracks" || got[1] != "1,2,3" {
		t.Errorf("expected sorted ids, got %v", got)
	}
}

func TestBuildMkvmergeArgsUsesNoFlagForFullyDroppedKind(t *testing.T) {
	streams := []stream.Stream{
		{Index: 0, Kind: stream.Video},
		{Index: 1, Kind: stream.Subtitle},
	}
	plan := planner.Plan{KeptIndices: []int{0}, NewDefaults: map[stream.Kind]int{}}
	args := BuildMkvmergeArgs(plan, streams, "/out/x.mkv", "/in/x.mkv")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--no-subtitles") {
		t.Errorf("expected --no-subtitles when every subtitle is dropped, got %v", args)
	}
	if strings.Contains(joined, "-1") {
		t.Errorf("mkvmerge has no -1 'keep none' track-ID syntax; got %v", args)
	}
}

// Regression: a video track with no default candidate in NewDefaults must
// not be misread as "wants to become default" just because the map
// lookup's zero value happens to equal its index.
func TestDefaultsChangedIgnoresMissingDefaultCandidate(t *testing.T) {
	streams := []stream.Stream{{Index: 0, Kind: stream.Video, Default: false}}
	plan := planner.Plan{NewDefaults: map[stream.Kind]int{}}
	if defaultsChanged(plan, streams) {
		t.Error("a kind with no default candidate and no real default flag should not count as changed")
	}
}

func TestExecuteNoProcessingNeededUsesFakeRunner(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	tgt := filepath.Join(dir, "out.mkv")

	plan := planner.Plan{Action: planner.NoProcessingNeeded, TransferMode: planner.Copy}
	var ran bool
	runner := FakeRunner{Log: func(name string, args []string) { ran = true }}

	result, err := Execute(context.Background(), runner, plan, nil, src, tgt, false, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Action != planner.NoProcessingNeeded {
		t.Errorf("expected NoProcessingNeeded, got %v", result.Action)
	}
	if ran {
		t.Errorf("the fake runner should never be invoked for a pure transfer")
	}
	if _, err := os.Stat(tgt); err != nil {
		t.Errorf("expected copied target to exist: %v", err)
	}
}

func TestExecuteRejectsExistingTargetWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	tgt := filepath.Join(dir, "out.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	os.WriteFile(tgt, []byte("existing"), 0o644)

	plan := planner.Plan{Action: planner.NoProcessingNeeded, TransferMode: planner.Copy}
	_, err := Execute(context.Background(), FakeRunner{}, plan, nil, src, tgt, false, false)
	if kind, ok := slimerr.KindOf(err); !ok || kind != slimerr.TargetExists {
		t.Fatalf("expected TargetExists error, got %v", err)
	}
}

func TestExecuteMkvmergeWarningExitStillSucceeds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	tgt := filepath.Join(dir, "out.mkv")
	os.WriteFile(src, []byte("data"), 0o644)

	streams := []stream.Stream{{Index: 0, Kind: stream.Video}}
	plan := planner.Plan{Action: planner.RunMkvmerge, KeptIndices: []int{0}, NewDefaults: map[stream.Kind]int{}}

	runner := stubRunner{stderr: "Warning: something odd", exitCode: 1}
	result, err := Execute(context.Background(), runner, plan, streams, src, tgt, false, false)
	if err != nil {
		t.Fatalf("exit code 1 must not be treated as a fatal error: %v", err)
	}
	if result.Warning == "" {
		t.Errorf("expected a non-empty warning to be carried through")
	}
}

func TestExecuteMkvmergeFatalExitRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	tgt := filepath.Join(dir, "out.mkv")
	os.WriteFile(src, []byte("data"), 0o644)

	runner := stubRunner{
		exitCode: 2,
		stderr:   "fatal",
		onRun: func() {
			os.WriteFile(tgt, []byte("partial"), 0o644)
		},
	}

	streams := []stream.Stream{{Index: 0, Kind: stream.Video}}
	plan := planner.Plan{Action: planner.RunMkvmerge, KeptIndices: []int{0}, NewDefaults: map[stream.Kind]int{}}

	_, err := Execute(context.Background(), runner, plan, streams, src, tgt, false, false)
	if kind, ok := slimerr.KindOf(err); !ok || kind != slimerr.MkvmergeFailed {
		t.Fatalf("expected MkvmergeFailed, got %v", err)
	}
	if _, statErr := os.Stat(tgt); statErr == nil {
		t.Errorf("partial output should have been removed after a fatal mkvmerge exit")
	}
}

type stubRunner struct {
	stderr   string
	exitCode int
	onRun    func()
}

func (s stubRunner) Run(_ context.Context, _ string, _ ...string) (string, string, int, error) {
	if s.onRun != nil {
		s.onRun()
	}
	return "", s.stderr, s.exitCode, nil
}
