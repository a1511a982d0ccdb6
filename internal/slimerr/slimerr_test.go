package slimerr

import (
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{Usage, 2},
		{DependencyMissing, 2},
		{PathGuard, 2},
		{MkvmergeFailed, 1},
		{WouldRemoveAllAudio, 1},
		{InputInvalid, 1},
	}
	for _, c := range cases {
		err := New(c.kind, "boom")
		if got := ExitCode(err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.kind, got, c.want)
		}
	}
	if ExitCode(nil) != 0 {
		t.Errorf("ExitCode(nil) should be 0")
	}
}

func TestKindOfUnwraps(t *testing.T) {
	inner := ForFile(ProbeFailed, "/x.mkv", "bad json", nil)
	wrapped := fmt.Errorf("wrapping: %w", inner)
	if _, ok := KindOf(wrapped); !ok {
		t.Fatalf("expected a Kind to be found")
	}
}

func TestSummarizeStripsANSIAndTruncates(t *testing.T) {
	raw := "\x1b[31merror\x1b[0m: something broke"
	got := Summarize(raw)
	if got != "error: something broke" {
		t.Errorf("Summarize stripped wrong: %q", got)
	}

	long := make([]byte, maxStderrBytes+500)
	for i := range long {
		long[i] = 'x'
	}
	got = Summarize(string(long))
	if len(got) <= maxStderrBytes || len(got) >= len(long) {
		t.Errorf("Summarize did not truncate: len=%d", len(got))
	}
}
