// Package selector implements the keep/drop/default decision engine
// (spec.md §4.D). It is deliberately pure: given streams and preferences
// it returns decisions, with no I/O of its own — the same "plan in,
// decisions out" shape the donor pack's backmassage-Muxmaster planner
// package uses for its buildAudioPlan/buildSubtitlePlan helpers.
package selector

import (
	"strings"

	"golang.org/x/text/cases"

	"mkvslimmer/internal/prefs"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/stream"
)

// Reason explains why a stream was kept or dropped.
type Reason int

const (
	ReasonLanguageOnly Reason = iota
	ReasonTitleMatch
	ReasonAlwaysKept
	ReasonNoLanguageMatch
	ReasonNoTitleMatch
)

// Decision is the per-stream outcome of selection.
type Decision struct {
	Stream         stream.Stream
	Keep           bool
	BecomesDefault bool
	Reason         Reason
}

// Options configures the selector's behavior beyond the preference lists.
type Options struct {
	SubtitlesForcedOnly bool
}

var titleCaser = cases.Fold() // Unicode-correct case folding for title-prefix matching.

// Select applies spec.md §4.D's per-kind policy to streams and returns one
// Decision per input stream, in input order.
//
// Returns a *slimerr.Error of kind WouldRemoveAllAudio if the audio policy
// would drop every audio track present (spec.md §4.D safety invariant).
func Select(streams []stream.Stream, audioPrefs []prefs.AudioPreference, subPrefs []prefs.SubtitlePreference, opts Options) ([]Decision, error) {
	decisions := make([]Decision, len(streams))

	audioDefaultIdx, subtitleDefaultIdx := -1, -1
	audioRank, subtitleRank := bestRank(len(audioPrefs)), bestRank(len(subPrefs))

	hadAudio := false
	keptAnyAudio := false

	for i, s := range streams {
		switch s.Kind {
		case stream.Video, stream.Attachment:
			decisions[i] = Decision{Stream: s, Keep: true, BecomesDefault: s.Default, Reason: ReasonAlwaysKept}

		case stream.Audio:
			hadAudio = true
			rank, ok := matchAudio(s, audioPrefs)
			if !ok {
				decisions[i] = Decision{Stream: s, Keep: false, Reason: ReasonNoLanguageMatch}
				continue
			}
			keptAnyAudio = true
			decisions[i] = Decision{Stream: s, Keep: true, Reason: ReasonLanguageOnly}
			if rank < audioRank || (rank == audioRank && audioDefaultIdx == -1) {
				audioRank = rank
				audioDefaultIdx = i
			}

		case stream.Subtitle:
			if opts.SubtitlesForcedOnly && !s.Forced {
				decisions[i] = Decision{Stream: s, Keep: false, Reason: ReasonNoLanguageMatch}
				continue
			}
			rank, matchReason, ok := matchSubtitle(s, subPrefs)
			if !ok {
				decisions[i] = Decision{Stream: s, Keep: false, Reason: matchReason}
				continue
			}
			decisions[i] = Decision{Stream: s, Keep: true, Reason: matchReason}
			if rank < subtitleRank || (rank == subtitleRank && subtitleDefaultIdx == -1) {
				subtitleRank = rank
				subtitleDefaultIdx = i
			}
		}
	}

	if hadAudio && !keptAnyAudio {
		observed := languageSet(streams, stream.Audio)
		requested := requestedAudioLanguages(audioPrefs)
		return nil, slimerr.Newf(slimerr.WouldRemoveAllAudio,
			"no audio track matches requested languages %v (observed %v)", requested, observed)
	}

	if audioDefaultIdx >= 0 {
		decisions[audioDefaultIdx].BecomesDefault = true
	}
	if subtitleDefaultIdx >= 0 {
		decisions[subtitleDefaultIdx].BecomesDefault = true
	}

	return decisions, nil
}

// bestRank returns a rank value worse than any real preference rank, used
// as the initial "nothing matched yet" sentinel.
func bestRank(numPrefs int) int { return numPrefs }

// matchAudio returns the rank of the earliest audio preference the stream
// matches (lower is better) and whether any preference matched.
func matchAudio(s stream.Stream, list []prefs.AudioPreference) (int, bool) {
	for rank, p := range list {
		if s.Language == p.Language {
			return rank, true
		}
	}
	return 0, false
}

// matchSubtitle returns the rank of the earliest subtitle preference the
// stream matches, the Reason to record, and whether it matched at all.
func matchSubtitle(s stream.Stream, list []prefs.SubtitlePreference) (int, Reason, bool) {
	bestRankSeen := -1
	bestReason := ReasonNoLanguageMatch

	for rank, p := range list {
		if s.Language != p.Language {
			continue
		}
		if p.TitlePrefix == nil {
			return rank, ReasonLanguageOnly, true
		}
		if titlePrefixMatches(s.Title, *p.TitlePrefix) {
			return rank, ReasonTitleMatch, true
		}
		if bestRankSeen == -1 {
			bestRankSeen = rank
			bestReason = ReasonNoTitleMatch
		}
	}
	if bestRankSeen >= 0 {
		return 0, bestReason, false
	}
	return 0, ReasonNoLanguageMatch, false
}

// titlePrefixMatches performs a case-insensitive prefix match using
// Unicode case folding. An empty or unset title fails the test.
func titlePrefixMatches(title, prefix string) bool {
	if title == "" {
		return false
	}
	folded := titleCaser.String(title)
	foldedPrefix := titleCaser.String(prefix)
	return strings.HasPrefix(folded, foldedPrefix)
}

func languageSet(streams []stream.Stream, kind stream.Kind) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range streams {
		if s.Kind == kind && !seen[s.Language] {
			seen[s.Language] = true
			out = append(out, s.Language)
		}
	}
	return out
}

func requestedAudioLanguages(list []prefs.AudioPreference) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.Language)
	}
	return out
}
