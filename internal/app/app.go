// Package app holds the single per-file pipeline (Probe -> Select -> Plan
// -> Execute) shared by the CLI entrypoint and the batch driver, so neither
// one owns the other's logic. This mirrors spec.md §9's explicit warning
// about a CLI<->batch import cycle: both cmd/mkvslimmer and internal/batch
// call into app, and app depends on neither.
package app

import (
	"context"

	"mkvslimmer/internal/executor"
	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/prefs"
	"mkvslimmer/internal/prober"
	"mkvslimmer/internal/selector"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/sonarr"
	"mkvslimmer/internal/stream"
)

// Deps bundles the per-run configuration and the mockable process runners
// the pipeline needs. It is built once per process and reused for every
// file in a batch.
type Deps struct {
	ProbeRunner   prober.Runner
	ExecRunner    executor.Runner
	AudioPrefs    []prefs.AudioPreference
	SubtitlePrefs []prefs.SubtitlePreference
	ForcedOnly    bool
	Sonarr        *sonarr.Context
	DryRun        bool
	Overwrite     bool
}

// Outcome reports what happened to one file, including the Sonarr
// MoveStatus that should be emitted to stdout (empty in dry-run mode, per
// spec.md §4.I point 3).
type Outcome struct {
	Streams         []stream.Stream
	Decisions       []selector.Decision
	Plan            planner.Plan
	Action          planner.Action
	DefaultsChanged bool
	Warning         string
	MoveStatus      sonarr.MoveStatus
}

// ProcessFile runs the full pipeline for one (source, target) pair. The
// stages are strictly serial with no concurrent observers of intermediate
// state, per spec.md §5.
func ProcessFile(ctx context.Context, deps Deps, source, target string) (Outcome, error) {
	streams, err := prober.Probe(ctx, deps.ProbeRunner, source)
	if err != nil {
		return Outcome{}, err
	}

	decisions, err := selector.Select(streams, deps.AudioPrefs, deps.SubtitlePrefs, selector.Options{
		SubtitlesForcedOnly: deps.ForcedOnly,
	})
	if err != nil {
		return Outcome{Streams: streams}, err
	}

	plan := planner.Build(decisions, deps.Sonarr)

	if plan.Action == planner.RunMkvmerge {
		mergeIDs, err := prober.IdentifyTrackIDs(ctx, deps.ProbeRunner, source)
		if err != nil {
			return Outcome{Streams: streams, Decisions: decisions, Plan: plan}, err
		}
		if err := prober.VerifyTrackAlignment(source, streams, mergeIDs); err != nil {
			return Outcome{Streams: streams, Decisions: decisions, Plan: plan}, err
		}
	}

	result, err := executor.Execute(ctx, deps.ExecRunner, plan, streams, source, target, deps.Overwrite, deps.DryRun)
	if err != nil {
		return Outcome{Streams: streams, Decisions: decisions, Plan: plan}, err
	}

	outcome := Outcome{
		Streams:         streams,
		Decisions:       decisions,
		Plan:            plan,
		Action:          result.Action,
		DefaultsChanged: result.DefaultsChanged,
		Warning:         result.Warning,
	}

	if !deps.DryRun {
		if result.Action == planner.NoProcessingNeeded && !result.DefaultsChanged {
			outcome.MoveStatus = sonarr.MoveComplete
		} else {
			outcome.MoveStatus = sonarr.RenameRequested
		}
	}

	return outcome, nil
}

// RequirePreferences returns a MissingConfiguration error when the audio
// list or the subtitle list is empty, i.e. neither CLI flags, the config
// file nor a TTY prompt supplied it (spec.md §6). Callers that do have a
// TTY are expected to prompt before calling this.
func RequirePreferences(audio []prefs.AudioPreference, subs []prefs.SubtitlePreference) error {
	if len(audio) == 0 {
		return slimerr.New(slimerr.MissingConfiguration, "no audio language preferences supplied, and no TTY to prompt on")
	}
	if len(subs) == 0 {
		return slimerr.New(slimerr.MissingConfiguration, "no subtitle language preferences supplied, and no TTY to prompt on")
	}
	return nil
}
