package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctucheck/internal/diag"
	"ctucheck/internal/driver"
	"ctucheck/internal/source"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [flags] <unit.json>...",
	Short: "Run per-unit checks and cross-translation-unit joining in one step",
	Long:  `diagnose is the single-command path: it runs analyze's per-unit checks over every given translation unit, builds each unit's CTU summary in memory, joins them, and prints the combined diagnostics — equivalent to analyze --emit-ctu for each unit followed by ctu-join, without the intermediate files.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDiagnose,
}

func init() {
	diagnoseCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	diagnoseCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	diagnoseCmd.Flags().String("config", "", "path to a .ctucheck.toml manifest (default: search upward from cwd)")
	diagnoseCmd.Flags().StringSlice("enable", nil, "comma-separated list of checks to force on")
	diagnoseCmd.Flags().StringSlice("disable", nil, "comma-separated list of checks to force off")
	diagnoseCmd.Flags().Bool("inconclusive", true, "report inconclusive findings")
	diagnoseCmd.Flags().Int("widening-bound", 0, "value-set cardinality before collapsing to top (0 = manifest/default)")
	diagnoseCmd.Flags().Int("loop-budget", 0, "fixpoint iterations per loop before widening (0 = manifest/default)")
	diagnoseCmd.Flags().Int("ctu-depth", 0, "max call hops a usage forwards through before giving up (0 = manifest/default)")
	diagnoseCmd.Flags().Int("jobs", 0, "max parallel unit analysis workers (0 = auto)")
	diagnoseCmd.Flags().Bool("no-ctu", false, "skip cross-translation-unit joining, equivalent to analyze alone")
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	cleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := resolveSettings(cmd)
	if err != nil {
		return err
	}
	if depth, derr := cmd.Flags().GetInt("ctu-depth"); derr == nil && depth > 0 {
		s.CTUDepthBound = depth
	}
	opts := s.ToDriverOptions()
	if md, merr := cmd.Root().PersistentFlags().GetInt("max-diagnostics"); merr == nil && md > 0 {
		opts.MaxDiagnostics = md
	}

	fs := source.NewFileSet()
	units, err := loadUnits(args, fs)
	if err != nil {
		return err
	}

	results, err := driver.AnalyzeAll(cmd.Context(), units, opts)
	if err != nil {
		return fmt.Errorf("diagnose: %w", err)
	}
	bag := mergeUnitResults(results, opts.MaxDiagnostics)

	noCTU, err := cmd.Flags().GetBool("no-ctu")
	if err != nil {
		return fmt.Errorf("failed to get no-ctu flag: %w", err)
	}
	if !noCTU {
		infos := driver.BuildCTUSummaries(units, fs, opts)
		bag.Merge(driver.JoinCTUSummaries(infos, opts, fs))
	}

	bag.Filter(func(d *diag.Diagnostic) bool { return d.Severity >= s.SeverityFilter })
	bag.Sort()

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if err := renderFormat(cmd, os.Stdout, bag, fs, format, fullPath); err != nil {
		return fmt.Errorf("failed to format diagnostics: %w", err)
	}

	if bag.HasErrors() {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	return nil
}
