package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ctucheck/internal/ctu"
	"ctucheck/internal/driver"
	"ctucheck/internal/source"
)

var ctuJoinCmd = &cobra.Command{
	Use:   "ctu-join [flags] <summary.ctu>...",
	Short: "Join CTU summaries produced by 'analyze --emit-ctu' into cross-unit diagnostics",
	Long:  `ctu-join decodes every given summary file, correlates unsafe-argument usages against call sites across units, and prints the resulting diagnostics.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCTUJoin,
}

func init() {
	ctuJoinCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	ctuJoinCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	ctuJoinCmd.Flags().String("config", "", "path to a .ctucheck.toml manifest (default: search upward from cwd)")
	ctuJoinCmd.Flags().Int("ctu-depth", 0, "max call hops a usage forwards through before giving up (0 = manifest/default)")
}

func runCTUJoin(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

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

	infos := make([]*ctu.FileInfo, len(args))
	for i, p := range args {
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return fmt.Errorf("%s: %w", p, readErr)
		}
		info, decErr := ctu.Decode(data)
		if decErr != nil {
			return fmt.Errorf("%s: %w", p, decErr)
		}
		infos[i] = info
	}

	fs := source.NewFileSet()
	bag := driver.JoinCTUSummaries(infos, opts, fs)
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
