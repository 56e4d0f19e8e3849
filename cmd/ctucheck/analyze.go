package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ctucheck/internal/ctu"
	"ctucheck/internal/diag"
	"ctucheck/internal/driver"
	"ctucheck/internal/settings"
	"ctucheck/internal/source"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <unit.json>...",
	Short: "Run per-unit checks over one or more translation units",
	Long:  `analyze decodes each translation unit (ctuio JSON), runs the uninit and null-pointer checks over every function, and prints the combined diagnostics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	analyzeCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	analyzeCmd.Flags().String("config", "", "path to a .ctucheck.toml manifest (default: search upward from cwd)")
	analyzeCmd.Flags().StringSlice("enable", nil, "comma-separated list of checks to force on")
	analyzeCmd.Flags().StringSlice("disable", nil, "comma-separated list of checks to force off")
	analyzeCmd.Flags().Bool("inconclusive", true, "report inconclusive findings")
	analyzeCmd.Flags().Int("widening-bound", 0, "value-set cardinality before collapsing to top (0 = manifest/default)")
	analyzeCmd.Flags().Int("loop-budget", 0, "fixpoint iterations per loop before widening (0 = manifest/default)")
	analyzeCmd.Flags().Int("jobs", 0, "max parallel unit analysis workers (0 = auto)")
	analyzeCmd.Flags().String("emit-ctu", "", "also build this unit's CTU summary and write it (msgpack) to the given path")
}

func resolveSettings(cmd *cobra.Command) (settings.Settings, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if configPath == "" {
		if found, ok, findErr := settings.FindManifest("."); findErr != nil {
			return settings.Settings{}, findErr
		} else if ok {
			configPath = found
		}
	}

	s := settings.Default()
	if configPath != "" {
		loaded, loadErr := settings.Load(configPath)
		if loadErr != nil {
			return settings.Settings{}, loadErr
		}
		s = loaded
	}

	// ctu-join shares this resolver but defines no enable/disable flags, so
	// an undefined flag reads as an empty list rather than an error.
	enable, _ := cmd.Flags().GetStringSlice("enable")
	disable, _ := cmd.Flags().GetStringSlice("disable")
	if len(enable) > 0 || len(disable) > 0 {
		if s.EnabledChecks == nil {
			s.EnabledChecks = map[string]bool{"uninitvar": true, "nullpointer": true}
		}
		for _, name := range enable {
			s.EnabledChecks[strings.TrimSpace(name)] = true
		}
		for _, name := range disable {
			s.EnabledChecks[strings.TrimSpace(name)] = false
		}
	}

	if cmd.Flags().Changed("inconclusive") {
		s.Inconclusive, err = cmd.Flags().GetBool("inconclusive")
		if err != nil {
			return settings.Settings{}, fmt.Errorf("failed to get inconclusive flag: %w", err)
		}
	}
	if widening, werr := cmd.Flags().GetInt("widening-bound"); werr == nil && widening > 0 {
		s.WideningBound = widening
	}
	if budget, berr := cmd.Flags().GetInt("loop-budget"); berr == nil && budget > 0 {
		s.LoopBudget = budget
	}
	if jobs, jerr := cmd.Flags().GetInt("jobs"); jerr == nil && jobs > 0 {
		s.Jobs = jobs
	}
	return s, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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
		return fmt.Errorf("analyze: %w", err)
	}

	bag := mergeUnitResults(results, opts.MaxDiagnostics)
	bag.Filter(func(d *diag.Diagnostic) bool { return d.Severity >= s.SeverityFilter })
	bag.Sort()

	if emitPath, _ := cmd.Flags().GetString("emit-ctu"); emitPath != "" {
		infos := driver.BuildCTUSummaries(units, fs, opts)
		if len(infos) != 1 {
			return fmt.Errorf("--emit-ctu only supports a single unit per invocation, got %d", len(infos))
		}
		data, encErr := ctu.Encode(infos[0])
		if encErr != nil {
			return fmt.Errorf("failed to encode CTU summary: %w", encErr)
		}
		if writeErr := os.WriteFile(emitPath, data, 0o644); writeErr != nil {
			return fmt.Errorf("failed to write CTU summary: %w", writeErr)
		}
	}

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
