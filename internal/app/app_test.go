package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mkvslimmer/internal/executor"
	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/prefs"
	"mkvslimmer/internal/slimerr"
)

const singleTrackJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "disposition": {"default": 1}, "tags": {}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "disposition": {"default": 1}, "tags": {"language": "eng"}}
  ],
  "format": {}
}`

type fakeProbeRunner struct {
	stdout []byte
}

func (f fakeProbeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return f.stdout, nil, nil
}

// dispatchingProbeRunner answers ffprobe and "mkvmerge -J" differently, for
// tests that exercise the track-alignment check performed before a
// mkvmerge rewrite.
type dispatchingProbeRunner struct {
	ffprobeJSON  string
	identifyJSON string
}

func (d dispatchingProbeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if name == "mkvmerge" {
		return []byte(d.identifyJSON), nil, nil
	}
	return []byte(d.ffprobeJSON), nil, nil
}

const twoAudioTrackJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "disposition": {"default": 1}, "tags": {}},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "disposition": {"default": 1}, "tags": {"language": "eng"}},
    {"index": 2, "codec_name": "aac", "codec_type": "audio", "disposition": {}, "tags": {"language": "jpn"}}
  ],
  "format": {}
}`

func TestProcessFileNoOpEmitsMoveComplete(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	tgt := filepath.Join(dir, "out.mkv")

	deps := Deps{
		ProbeRunner: fakeProbeRunner{stdout: []byte(singleTrackJSON)},
		ExecRunner:  executor.FakeRunner{},
		AudioPrefs:  prefs.ParseAudioList([]string{"eng"}),
	}

	outcome, err := ProcessFile(context.Background(), deps, src, tgt)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if outcome.Action != planner.NoProcessingNeeded {
		t.Errorf("expected NoProcessingNeeded, got %v", outcome.Action)
	}
	if outcome.MoveStatus != "MoveComplete" {
		t.Errorf("expected MoveComplete, got %q", outcome.MoveStatus)
	}
}

func TestProcessFileDryRunEmitsNoMoveStatus(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	tgt := filepath.Join(dir, "out.mkv")

	deps := Deps{
		ProbeRunner: fakeProbeRunner{stdout: []byte(singleTrackJSON)},
		ExecRunner:  executor.FakeRunner{},
		AudioPrefs:  prefs.ParseAudioList([]string{"eng"}),
		DryRun:      true,
	}

	outcome, err := ProcessFile(context.Background(), deps, src, tgt)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if outcome.MoveStatus != "" {
		t.Errorf("dry-run must never emit a MoveStatus, got %q", outcome.MoveStatus)
	}
}

func TestProcessFileSurfacesSelectorError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	tgt := filepath.Join(dir, "out.mkv")

	deps := Deps{
		ProbeRunner: fakeProbeRunner{stdout: []byte(singleTrackJSON)},
		ExecRunner:  executor.FakeRunner{},
		AudioPrefs:  prefs.ParseAudioList([]string{"jpn"}),
	}

	_, err := ProcessFile(context.Background(), deps, src, tgt)
	if kind, ok := slimerr.KindOf(err); !ok || kind != slimerr.WouldRemoveAllAudio {
		t.Fatalf("expected WouldRemoveAllAudio to propagate, got %v", err)
	}
}

func TestProcessFileVerifiesTrackAlignmentBeforeMkvmerge(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	tgt := filepath.Join(dir, "out.mkv")

	deps := Deps{
		ProbeRunner: dispatchingProbeRunner{
			ffprobeJSON:  twoAudioTrackJSON,
			identifyJSON: `{"tracks":[{"id":0},{"id":1},{"id":2}]}`,
		},
		ExecRunner: executor.FakeRunner{},
		AudioPrefs: prefs.ParseAudioList([]string{"eng"}), // drops jpn audio -> RunMkvmerge
	}

	outcome, err := ProcessFile(context.Background(), deps, src, tgt)
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	if outcome.Action != planner.RunMkvmerge {
		t.Fatalf("expected RunMkvmerge, got %v", outcome.Action)
	}
}

func TestProcessFileFailsOnTrackAlignmentMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.mkv")
	os.WriteFile(src, []byte("data"), 0o644)
	tgt := filepath.Join(dir, "out.mkv")

	deps := Deps{
		ProbeRunner: dispatchingProbeRunner{
			ffprobeJSON:  twoAudioTrackJSON,
			identifyJSON: `{"tracks":[{"id":0},{"id":2},{"id":1}]}`, // order diverges from ffprobe
		},
		ExecRunner: executor.FakeRunner{},
		AudioPrefs: prefs.ParseAudioList([]string{"eng"}),
	}

	_, err := ProcessFile(context.Background(), deps, src, tgt)
	if kind, ok := slimerr.KindOf(err); !ok || kind != slimerr.ProbeFailed {
		t.Fatalf("expected ProbeFailed for misaligned tracks, got %v", err)
	}
}

func TestRequirePreferencesRequiresBothLists(t *testing.T) {
	audio := prefs.ParseAudioList([]string{"eng"})
	subs := prefs.ParseSubtitleList([]string{"eng"})

	if err := RequirePreferences(nil, subs); err == nil {
		t.Error("missing audio preferences should fail")
	}
	if err := RequirePreferences(audio, nil); err == nil {
		t.Error("missing subtitle preferences should fail")
	}
	if err := RequirePreferences(audio, subs); err != nil {
		t.Errorf("both lists present should pass, got %v", err)
	}
}
