package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mkvslimmer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesKnownKeys(t *testing.T) {
	path := writeConfig(t, `
audio:
  keep_languages: [eng, jpn]
subtitles:
  keep_languages: [eng]
  forced_only: true
processing:
  dry_run: true
`)
	f, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(f.Audio.KeepLanguages) != 2 || f.Audio.KeepLanguages[0] != "eng" {
		t.Errorf("audio keep_languages wrong: %+v", f.Audio.KeepLanguages)
	}
	if !f.Subtitles.ForcedOnly || !f.Processing.DryRun {
		t.Errorf("booleans not parsed: %+v", f)
	}
}

func TestLoadEmptyPathYieldsZeroFile(t *testing.T) {
	f, warnings, err := Load("")
	if err != nil || f == nil || warnings != nil {
		t.Fatalf("expected a zero File with no warnings/error, got %+v %v %v", f, warnings, err)
	}
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
audio:
  keep_languages: [eng]
  bogus_key: true
made_up_section:
  x: 1
`)
	_, warnings, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings (unknown top-level + nested), got %v", warnings)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "audio: [this is not: a valid: map")
	_, _, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

func TestMergeCLIOverridesWinWhenNonEmpty(t *testing.T) {
	f := &File{}
	f.Audio.KeepLanguages = []string{"eng"}
	f.Subtitles.KeepLanguages = []string{"eng"}

	resolved := Merge(f, Overrides{AudioLanguages: []string{"jpn"}})
	if len(resolved.AudioPrefs) != 1 || resolved.AudioPrefs[0].Language != "jpn" {
		t.Errorf("CLI audio override should win, got %+v", resolved.AudioPrefs)
	}
	if len(resolved.SubtitlePrefs) != 1 || resolved.SubtitlePrefs[0].Language != "eng" {
		t.Errorf("config subtitle list should be kept when CLI is silent, got %+v", resolved.SubtitlePrefs)
	}
}

func TestMergeBooleanFlagsOrTogether(t *testing.T) {
	f := &File{}
	f.Subtitles.ForcedOnly = true

	resolved := Merge(f, Overrides{DryRun: true})
	if !resolved.ForcedOnly {
		t.Error("config-file forced_only should survive when the CLI doesn't set it")
	}
	if !resolved.DryRun {
		t.Error("CLI dry-run override should be honored")
	}
}
