// Package slimerr defines the error taxonomy (spec.md §7) used across the
// pipeline and the exit-code mapping the CLI entrypoint applies to it.
package slimerr

import (
	"errors"
	"fmt"
)

// Kind identifies a category of failure, independent of the Go error type
// that carries it.
type Kind int

const (
	Usage Kind = iota
	DependencyMissing
	PathGuard
	InputInvalid
	ProbeFailed
	WouldRemoveAllAudio
	MkvmergeFailed
	IoError
	TargetExists
	Interrupted
	MissingConfiguration
)

func (k Kind) String() string {
	switch k {
	case Usage:
		return "Usage"
	case DependencyMissing:
		return "DependencyMissing"
	case PathGuard:
		return "PathGuard"
	case InputInvalid:
		return "InputInvalid"
	case ProbeFailed:
		return "ProbeFailed"
	case WouldRemoveAllAudio:
		return "WouldRemoveAllAudio"
	case MkvmergeFailed:
		return "MkvmergeFailed"
	case IoError:
		return "IoError"
	case TargetExists:
		return "TargetExists"
	case Interrupted:
		return "Interrupted"
	case MissingConfiguration:
		return "MissingConfiguration"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-tagged error. File is the path being processed when
// the error occurred, if any; Detail is a short, already-summarized
// message (never raw external-tool stderr — see Summarize).
type Error struct {
	Kind   Kind
	File   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no file context (startup-time failures).
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf builds an Error with no file context and a formatted detail.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// ForFile builds an Error scoped to a specific input file.
func ForFile(kind Kind, file, detail string, err error) *Error {
	return &Error{Kind: kind, File: file, Detail: detail, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error, returning false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// ExitCode maps an error to the process exit code described in spec.md §6.
// A nil error maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch kind {
	case Usage, DependencyMissing, PathGuard:
		return 2
	default:
		return 1
	}
}

// maxStderrBytes bounds how much captured external-tool stderr ever reaches
// a user-facing message.
const maxStderrBytes = 2000

// Summarize trims and caps raw external-tool stderr so it is safe to
// surface: ANSI escapes stripped, truncated to a reasonable size. Spec.md
// §7/§9 forbid leaking raw stderr (it can contain absolute paths from
// mkvmerge's own diagnostics that are unrelated to the current file).
func Summarize(raw string) string {
	stripped := stripANSI(raw)
	if len(stripped) > maxStderrBytes {
		stripped = stripped[:maxStderrBytes] + "... (truncated)"
	}
	return stripped
}

// stripANSI removes CSI escape sequences (ESC '[' ... letter).
func stripANSI(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && !isCSITerminator(s[j]) {
				j++
			}
			if j < len(s) {
				j++
			}
			i = j - 1
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

func isCSITerminator(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}
