// Command mkvslimmer strips unwanted audio and subtitle tracks from MKV
// files, singly or over a directory tree, and speaks Sonarr's post-
// processing stdout protocol when invoked as an import script.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"gopkg.in/alecthomas/kingpin.v2"

	"mkvslimmer/internal/app"
	"mkvslimmer/internal/batch"
	"mkvslimmer/internal/config"
	"mkvslimmer/internal/display"
	"mkvslimmer/internal/executor"
	"mkvslimmer/internal/pathguard"
	"mkvslimmer/internal/planner"
	"mkvslimmer/internal/prefs"
	"mkvslimmer/internal/prober"
	"mkvslimmer/internal/slimerr"
	"mkvslimmer/internal/sonarr"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		kapp          = kingpin.New("mkvslimmer", "Strip unwanted audio/subtitle tracks from MKV files")
		audioFlag     = kapp.Flag("audio-languages", "Audio language to keep (repeatable, order = preference)").Short('a').Strings()
		subFlag       = kapp.Flag("subtitle-languages", "Subtitle language[, title prefix] to keep (repeatable, order = preference)").Short('s').Strings()
		recursiveFlag = kapp.Flag("recursive", "Recurse into subdirectories of a directory input").Short('r').Bool()
		filterFlag    = kapp.Flag("filter", "Glob filter applied to discovered files in batch mode").Short('f').String()
		dryRunFlag    = kapp.Flag("dry-run", "Show what would happen without writing anything").Short('n').Bool()
		configFlag    = kapp.Flag("config", "Path to a YAML configuration file").Short('c').String()
		infoFlag      = kapp.Flag("info", "Print the track table for input_path and exit").Bool()

		inputArg  = kapp.Arg("input_path", "Source file or directory").Required().String()
		targetArg = kapp.Arg("target_path", "Destination file or directory").Required().String()
	)

	if _, err := kapp.Parse(os.Args[1:]); err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(slimerr.New(slimerr.Usage, err.Error()))
	}

	cfgFile, warnings, err := loadConfig(*configFlag)
	if err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(slimerr.New(slimerr.Usage, err.Error()))
	}
	for _, w := range warnings {
		display.PrintWarning(os.Stderr, "%s", w)
	}

	resolved := config.Merge(cfgFile, config.Overrides{
		AudioLanguages:    *audioFlag,
		SubtitleLanguages: *subFlag,
		DryRun:            *dryRunFlag,
	})

	if *infoFlag {
		return runInfo(*inputArg)
	}

	if len(resolved.AudioPrefs) == 0 || len(resolved.SubtitlePrefs) == 0 {
		resolved = promptForMissingPrefs(resolved)
	}
	if err := app.RequirePreferences(resolved.AudioPrefs, resolved.SubtitlePrefs); err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(err)
	}

	guard, err := pathguard.Validate(*inputArg, *targetArg, *recursiveFlag)
	if err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(err)
	}

	sc := sonarr.Collect()
	if w := planner.Build(nil, sc).TransferModeWarning; w != "" {
		display.PrintWarning(os.Stderr, "%s", w)
	}

	deps := app.Deps{
		ProbeRunner:   prober.ExecRunner{},
		ExecRunner:    executor.ExecRunner{},
		AudioPrefs:    resolved.AudioPrefs,
		SubtitlePrefs: resolved.SubtitlePrefs,
		ForcedOnly:    resolved.ForcedOnly,
		Sonarr:        sc,
		DryRun:        resolved.DryRun,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			cancel()
		}
	}()

	if guard.Combination == pathguard.DirectoryToDirectory {
		return runBatch(ctx, deps, guard, *recursiveFlag, *filterFlag)
	}
	return runSingle(ctx, deps, guard, *inputArg)
}

func loadConfig(explicitPath string) (*config.File, []string, error) {
	if explicitPath != "" {
		return config.Load(explicitPath)
	}
	return config.LoadWithFallback()
}

// promptForMissingPrefs implements spec.md §6's interactive carve-out:
// when a required preference list is empty and stdin is a TTY, ask for it
// instead of immediately failing with MissingConfiguration.
func promptForMissingPrefs(resolved config.Resolved) config.Resolved {
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return resolved
	}
	reader := bufio.NewReader(os.Stdin)

	if len(resolved.AudioPrefs) == 0 {
		display.PrintInfo(os.Stderr, "No audio language preference configured.")
		fmt.Fprint(os.Stderr, "Audio languages to keep, in order (comma-separated, e.g. jpn,eng): ")
		line, _ := reader.ReadString('\n')
		resolved.AudioPrefs = prefs.ParseAudioList(splitNonEmpty(line))
	}
	if len(resolved.SubtitlePrefs) == 0 {
		display.PrintInfo(os.Stderr, "No subtitle language preference configured.")
		fmt.Fprint(os.Stderr, "Subtitle languages to keep, in order (comma-separated, e.g. eng): ")
		line, _ := reader.ReadString('\n')
		resolved.SubtitlePrefs = prefs.ParseSubtitleList(splitNonEmpty(line))
	}
	return resolved
}

func splitNonEmpty(line string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimSpace(line), ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func runInfo(inputPath string) int {
	ctx := context.Background()
	streams, err := prober.Probe(ctx, prober.ExecRunner{}, inputPath)
	if err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(err)
	}
	display.TrackTable(os.Stderr, streams, nil)
	return 0
}

func runSingle(ctx context.Context, deps app.Deps, guard *pathguard.Result, inputPath string) int {
	target := guard.CanonicalTarget
	if guard.Combination == pathguard.FileToDirectory {
		target = filepath.Join(target, filepath.Base(guard.CanonicalSource))
	}

	outcome, err := app.ProcessFile(ctx, deps, guard.CanonicalSource, target)
	if err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(err)
	}

	display.TrackTable(os.Stderr, outcome.Streams, outcome.Decisions)
	if outcome.Warning != "" {
		display.PrintWarning(os.Stderr, "mkvmerge: %s", outcome.Warning)
	}
	display.PrintSuccess(os.Stderr, "%s -> %s", filepath.Base(inputPath), target)

	if outcome.MoveStatus != "" {
		sonarr.Emit(os.Stdout, outcome.MoveStatus)
	}
	return 0
}

func runBatch(ctx context.Context, deps app.Deps, guard *pathguard.Result, recursive bool, glob string) int {
	jobs, skipped, err := batch.Discover(guard.CanonicalSource, recursive, glob, guard.CanonicalTarget)
	if err != nil {
		display.PrintError(os.Stderr, "%v", err)
		return slimerr.ExitCode(err)
	}

	summary := batch.Run(ctx, deps, jobs, skipped, guard.CanonicalTarget, os.Stdout, func(r batch.FileResult) {
		if r.Err != nil {
			display.PrintError(os.Stderr, "%s: %v", r.Job.RelPath, r.Err)
			return
		}
		display.PrintSuccess(os.Stderr, "%s", r.Job.RelPath)
	})

	display.Summary(os.Stderr, summary)

	if !summary.Success() {
		return 1
	}
	return 0
}
