// Package planner turns selector decisions into a Plan: the no-op
// detection and transfer-mode choice described in spec.md §4.E. Structured
// the way the donor pack's backmassage-Muxmaster planner package turns
// probe data into a FilePlan — a small, pure "decide, don't do" stage
// sitting between selection and execution.
package planner

import (
	"strings"

	"mkvslimmer/internal/selector"
	"mkvslimmer/internal/sonarr"
	"mkvslimmer/internal/stream"
)

// Action is the high-level processing decision.
type Action int

const (
	NoProcessingNeeded Action = iota
	RunMkvmerge
)

func (a Action) String() string {
	switch a {
	case NoProcessingNeeded:
		return "NoProcessingNeeded"
	case RunMkvmerge:
		return "RunMkvmerge"
	default:
		return "Unknown"
	}
}

// TransferMode selects how a no-op file reaches its target path.
type TransferMode int

const (
	Move TransferMode = iota
	Copy
	HardLink
	HardLinkOrCopy
)

func (m TransferMode) String() string {
	switch m {
	case Move:
		return "Move"
	case Copy:
		return "Copy"
	case HardLink:
		return "HardLink"
	case HardLinkOrCopy:
		return "HardLinkOrCopy"
	default:
		return "Unknown"
	}
}

// Plan is the output of the Plan stage.
type Plan struct {
	Action       Action
	TransferMode TransferMode
	KeptIndices  []int
	NewDefaults  map[stream.Kind]int

	// TransferModeWarning is set when the Sonarr context supplied an
	// unrecognized Sonarr_TransferMode value; the caller logs it.
	TransferModeWarning string
}

// Build computes a Plan from a file's selector decisions and Sonarr
// context (§4.E points 1-4).
func Build(decisions []selector.Decision, sc *sonarr.Context) Plan {
	plan := Plan{
		NewDefaults: map[stream.Kind]int{},
	}

	allKept := true
	for _, d := range decisions {
		if d.Keep {
			plan.KeptIndices = append(plan.KeptIndices, d.Stream.Index)
		} else {
			allKept = false
		}
		if d.BecomesDefault {
			if _, exists := plan.NewDefaults[d.Stream.Kind]; !exists {
				plan.NewDefaults[d.Stream.Kind] = d.Stream.Index
			}
		}
	}

	defaultsMatch := true
	for _, d := range decisions {
		idx, ok := plan.NewDefaults[d.Stream.Kind]
		wantDefault := ok && idx == d.Stream.Index
		if d.Stream.Default != wantDefault {
			defaultsMatch = false
			break
		}
	}

	if allKept && defaultsMatch {
		plan.Action = NoProcessingNeeded
	} else {
		plan.Action = RunMkvmerge
	}

	plan.TransferMode, plan.TransferModeWarning = resolveTransferMode(sc)
	return plan
}

// resolveTransferMode implements spec.md §4.E point 4: a Sonarr-supplied
// Sonarr_TransferMode wins (case-insensitive); an unrecognized value warns
// and falls back to HardLinkOrCopy, as does the absence of any context.
func resolveTransferMode(sc *sonarr.Context) (TransferMode, string) {
	if sc == nil {
		return HardLinkOrCopy, ""
	}
	raw, ok := sc.Get("Sonarr_TransferMode")
	if !ok {
		return HardLinkOrCopy, ""
	}
	switch strings.ToLower(raw) {
	case "move":
		return Move, ""
	case "copy":
		return Copy, ""
	case "hardlink":
		return HardLink, ""
	case "hardlinkorcopy":
		return HardLinkOrCopy, ""
	default:
		return HardLinkOrCopy, "unrecognized Sonarr_TransferMode " + raw + "; falling back to HardLinkOrCopy"
	}
}
