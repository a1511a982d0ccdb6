// Package prober invokes ffprobe and maps its JSON stream dump onto the
// stream.Stream model, following the same "shell out to the tool, parse
// its JSON" pattern the teacher uses in internal/mkv.GetTrackInfo for
// mkvmerge -J.
package prober

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/stream"
)

// ffprobeStream mirrors the subset of ffprobe's -show_streams JSON this
// tool cares about. Field names follow ffprobe's own (snake_case) wire
// format, as in the sample fixtures used across the donor pack's
// internal/probe tests.
type ffprobeStream struct {
	Index       int    `json:"index"`
	CodecName   string `json:"codec_name"`
	CodecType   string `json:"codec_type"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	ChannelsN   int    `json:"channels"`
	SampleRate  string `json:"sample_rate"`
	ColorSpace  string `json:"color_space"`
	ColorTransfer string `json:"color_transfer"`
	Disposition struct {
		Default int `json:"default"`
		Forced  int `json:"forced"`
	} `json:"disposition"`
	Tags struct {
		Language string `json:"language"`
		Title    string `json:"title"`
	} `json:"tags"`
}

type ffprobeFormat struct {
	Size string `json:"size"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// Runner abstracts process execution so callers can substitute a fake for
// testing, the same seam the teacher/pack use (marcopaganini-mkvtool's
// runner interface) to keep dry-run and unit tests off the real binary.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

// ExecRunner runs real processes via os/exec.
type ExecRunner struct{}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	return out, []byte(stderr.String()), err
}

// Probe runs ffprobe against path and returns the file's streams in probe
// order (the order mkvmerge --identify's track IDs are expected to align
// with; callers that also invoke mkvmerge must verify this themselves —
// see IdentifyTrackIDs and VerifyTrackAlignment).
func Probe(ctx context.Context, r Runner, path string) ([]stream.Stream, error) {
	out, stderr, err := r.Output(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, slimerr.ForFile(slimerr.ProbeFailed, path,
				fmt.Sprintf("ffprobe exited %d: %s", exitErr.ExitCode(), slimerr.Summarize(string(stderr))), err)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, slimerr.ForFile(slimerr.DependencyMissing, path, "ffprobe binary not found", err)
		}
		return nil, slimerr.ForFile(slimerr.ProbeFailed, path, "failed to invoke ffprobe", err)
	}

	var parsed ffprobeOutput
	if jsonErr := json.Unmarshal(out, &parsed); jsonErr != nil {
		offset := ""
		var syn *json.SyntaxError
		if errors.As(jsonErr, &syn) {
			offset = fmt.Sprintf(" at offset %d", syn.Offset)
		}
		return nil, slimerr.ForFile(slimerr.ProbeFailed, path,
			fmt.Sprintf("malformed ffprobe JSON%s", offset), jsonErr)
	}

	streams := make([]stream.Stream, 0, len(parsed.Streams))
	for _, s := range parsed.Streams {
		streams = append(streams, toStream(s))
	}

	if len(streams) == 0 {
		return nil, slimerr.ForFile(slimerr.InputInvalid, path, "probe returned no streams", nil)
	}

	return streams, nil
}

func toStream(s ffprobeStream) stream.Stream {
	lang := strings.ToLower(strings.TrimSpace(s.Tags.Language))
	if lang == "" {
		lang = stream.Undefined
	}

	out := stream.Stream{
		Index:    s.Index,
		Kind:     toKind(s.CodecType),
		Codec:    s.CodecName,
		Language: lang,
		Title:    s.Tags.Title,
		Default:  s.Disposition.Default != 0,
		Forced:   s.Disposition.Forced != 0,
	}

	switch out.Kind {
	case stream.Video:
		out.VideoMeta = &stream.VideoMeta{
			Width:  s.Width,
			Height: s.Height,
			FPS:    parseFrameRate(s.AvgFrameRate),
			HDR:    s.ColorTransfer == "smpte2084" || s.ColorTransfer == "arib-std-b67",
		}
	case stream.Audio:
		sr, _ := strconv.Atoi(s.SampleRate)
		out.AudioMeta = &stream.AudioMeta{
			Channels:   s.ChannelsN,
			SampleRate: sr,
		}
	}

	return out
}

func toKind(codecType string) stream.Kind {
	switch codecType {
	case "video":
		return stream.Video
	case "audio":
		return stream.Audio
	case "subtitle":
		return stream.Subtitle
	case "attachment":
		return stream.Attachment
	default:
		return stream.Attachment
	}
}

func parseFrameRate(raw string) float64 {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

// mkvmergeIdentifyOutput mirrors the subset of "mkvmerge -J" this tool
// needs, following the same field shape the teacher's model.MKVInfo uses
// for mkvmerge's identify JSON.
type mkvmergeIdentifyOutput struct {
	Tracks []struct {
		ID int `json:"id"`
	} `json:"tracks"`
}

// IdentifyTrackIDs runs "mkvmerge -J" against path and returns its track
// IDs in the order mkvmerge reports them, for comparison against the
// ffprobe-derived stream order via VerifyTrackAlignment.
func IdentifyTrackIDs(ctx context.Context, r Runner, path string) ([]int, error) {
	out, stderr, err := r.Output(ctx, "mkvmerge", "-J", path)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, slimerr.ForFile(slimerr.ProbeFailed, path,
				fmt.Sprintf("mkvmerge -J exited %d: %s", exitErr.ExitCode(), slimerr.Summarize(string(stderr))), err)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, slimerr.ForFile(slimerr.DependencyMissing, path, "mkvmerge binary not found", err)
		}
		return nil, slimerr.ForFile(slimerr.ProbeFailed, path, "failed to invoke mkvmerge -J", err)
	}

	var parsed mkvmergeIdentifyOutput
	if jsonErr := json.Unmarshal(out, &parsed); jsonErr != nil {
		return nil, slimerr.ForFile(slimerr.ProbeFailed, path, "malformed mkvmerge -J JSON", jsonErr)
	}

	ids := make([]int, len(parsed.Tracks))
	for i, t := range parsed.Tracks {
		ids[i] = t.ID
	}
	return ids, nil
}

// VerifyTrackAlignment checks that ffprobe's stream indices line up with
// mkvmerge --identify's track IDs one-to-one and in order, as spec.md §4.C
// requires when both tools are in play. mergeIDs is the ordered list of
// track IDs mkvmerge reports.
func VerifyTrackAlignment(path string, streams []stream.Stream, mergeIDs []int) error {
	if len(streams) != len(mergeIDs) {
		return slimerr.ForFile(slimerr.ProbeFailed, path,
			fmt.Sprintf("track count mismatch between ffprobe (%d) and mkvmerge (%d)", len(streams), len(mergeIDs)), nil)
	}
	for i, s := range streams {
		if s.Index != mergeIDs[i] {
			return slimerr.ForFile(slimerr.ProbeFailed, path,
				fmt.Sprintf("track order diverges between ffprobe and mkvmerge at position %d (%d vs %d)", i, s.Index, mergeIDs[i]), nil)
		}
	}
	return nil
}
