// Package sonarr models the Sonarr post-processing integration: collecting
// the fixed environment-variable vocabulary (spec.md §4.I, §6) and emitting
// the small stdout command protocol Sonarr expects.
//
// There is no donor-pack library for "collect env vars matching a prefix,
// case-insensitively" — it is a handful of lines over os.Environ, so it is
// written directly against the standard library (see DESIGN.md).
package sonarr

import (
	"fmt"
	"os"
	"strings"
)

// EnvPrefix is the fixed prefix Sonarr uses for every variable it sets.
const EnvPrefix = "sonarr_"

// Context is an opaque, read-only (after construction) bag of the Sonarr
// environment variables observed at startup. Keys are stored lower-cased;
// lookups are case-insensitive.
type Context struct {
	vars map[string]string
}

// Collect reads the process environment and returns a Context holding
// every variable whose name case-insensitively starts with "Sonarr_", or
// nil if none were found (meaning: not running under Sonarr).
func Collect() *Context {
	return collectFrom(os.Environ())
}

func collectFrom(environ []string) *Context {
	vars := map[string]string{}
	for _, kv := range environ {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		if strings.HasPrefix(strings.ToLower(k), EnvPrefix) {
			vars[strings.ToLower(k)] = v
		}
	}
	if len(vars) == 0 {
		return nil
	}
	return &Context{vars: vars}
}

// Get looks up a Sonarr variable case-insensitively.
func (c *Context) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.vars[strings.ToLower(key)]
	return v, ok
}

// Present reports whether a Sonarr context was found at all.
func (c *Context) Present() bool { return c != nil }

// MoveStatus is the stdout command vocabulary this tool emits.
type MoveStatus string

const (
	MoveComplete    MoveStatus = "MoveComplete"
	RenameRequested MoveStatus = "RenameRequested"
)

// Emit writes one "[MoveStatus] <status>" line to w, atomically with
// respect to any other writer sharing the stream (spec.md §5: Sonarr
// command lines must appear on their own line with no interleaving).
// Callers route all other human-oriented progress to stderr so this is
// the only thing ever written to stdout.
func Emit(w writer, status MoveStatus) {
	fmt.Fprintf(w, "[MoveStatus] %s\n", status)
}

type writer interface {
	Write(p []byte) (n int, err error)
}
