// Package prefs parses the user-supplied language (and, for subtitles,
// title-prefix) preferences that drive track selection. Preference order
// is the ranking the selector uses, so these are kept as plain ordered
// slices — never maps or sets, which would lose that order.
package prefs

import "strings"

// AudioPreference is one entry of the ordered audio-language ranking.
type AudioPreference struct {
	Language string // 3-letter lowercase
}

// SubtitlePreference is one entry of the ordered subtitle ranking. A nil
// TitlePrefix means the preference matches on language alone.
type SubtitlePreference struct {
	Language    string
	TitlePrefix *string
}

// ParseAudio parses a raw "-a" flag value into an AudioPreference. The
// whole string is the language code; trimmed and lower-cased.
func ParseAudio(raw string) AudioPreference {
	return AudioPreference{Language: strings.ToLower(strings.TrimSpace(raw))}
}

// ParseAudioList parses an ordered list of raw audio preference strings,
// preserving the caller's order.
func ParseAudioList(raw []string) []AudioPreference {
	out := make([]AudioPreference, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseAudio(r))
	}
	return out
}

// ParseSubtitle parses one raw "-s" flag value. The string is split at its
// *first* comma: the left side, trimmed and lower-cased, is the language;
// the right side, trimmed (which may itself contain commas), is the title
// prefix. A string with no comma yields a nil TitlePrefix.
func ParseSubtitle(raw string) SubtitlePreference {
	if idx := strings.Index(raw, ","); idx >= 0 {
		lang := strings.ToLower(strings.TrimSpace(raw[:idx]))
		title := strings.TrimSpace(raw[idx+1:])
		return SubtitlePreference{Language: lang, TitlePrefix: &title}
	}
	return SubtitlePreference{Language: strings.ToLower(strings.TrimSpace(raw))}
}

// ParseSubtitleList parses an ordered list of raw subtitle preference
// strings, preserving the caller's order.
func ParseSubtitleList(raw []string) []SubtitlePreference {
	out := make([]SubtitlePreference, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseSubtitle(r))
	}
	return out
}
