package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ctucheck/internal/ctuio"
	"ctucheck/internal/diag"
	"ctucheck/internal/diagfmt"
	"ctucheck/internal/driver"
	"ctucheck/internal/libfacts"
	"ctucheck/internal/source"
)

// loadUnits decodes one ctuio unit per path and builds a driver.Unit from
// each, all sharing fs so cross-file diagnostics can resolve every
// involved location. Every unit gets the same built-in library facts table
// — this module has no external library-file parser, matching
// internal/libfacts' confirmed built-in-only coverage.
func loadUnits(paths []string, fs *source.FileSet) ([]driver.Unit, error) {
	facts := libfacts.Builtin()
	units := make([]driver.Unit, len(paths))
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		u, err := ctuio.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		stream, _, err := ctuio.Build(u, fs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		units[i] = driver.Unit{Path: u.Path, Stream: stream, Facts: facts}
	}
	return units, nil
}

// mergeUnitResults flattens AnalyzeAll's per-unit results into one bag,
// preserving the per-unit cap as the merged bag's own capacity headroom.
func mergeUnitResults(results []driver.UnitResult, maxDiagnostics int) *diag.Bag {
	bag := diag.NewBag(maxDiagnostics)
	for _, r := range results {
		if r.Bag == nil {
			continue
		}
		bag.Merge(r.Bag)
	}
	return bag
}

// renderFormat dispatches a diagnostics output for one of the formats every
// ctucheck subcommand accepts.
func renderFormat(cmd *cobra.Command, out io.Writer, bag *diag.Bag, fs *source.FileSet, format string, fullPath bool) error {
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))

	switch format {
	case "pretty":
		diagfmt.Pretty(out, bag, fs, diagfmt.PrettyOpts{
			Color:    useColor,
			Context:  2,
			PathMode: pathMode,
		})
		return nil
	case "json":
		return diagfmt.JSON(out, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeCallStack: true,
		})
	case "sarif":
		return diagfmt.Sarif(out, bag, fs, diagfmt.SarifRunMeta{
			ToolName:    "ctucheck",
			ToolVersion: "0.1.0",
		})
	default:
		return fmt.Errorf("unknown format %q (must be pretty, json, or sarif)", format)
	}
}
