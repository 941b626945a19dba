package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/nilmpatch/internal/audit"
	"github.com/seenimoa/nilmpatch/internal/config"
	"github.com/seenimoa/nilmpatch/internal/report"
	"github.com/seenimoa/nilmpatch/internal/walker"
)

// app carries the state shared by every command after PersistentPreRunE.
type app struct {
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "nilmpatch [--dry-run] <dir> [dir ...]",
		Short: "Repair NaN-affected dynamic threshold NILM reports in place",
		Long: `nilmpatch fixes per-house dynamic threshold reports whose background
share was inflated by NaN minutes. It rebalances the Explained + Background +
Unmatched breakdown so it sums to 100%, caps every rendering of the detection
efficiency at 100%, and relabels titles as "Dynamic Threshold NaN Filled".

Examples:
  nilmpatch /data/house_reports_nan/
  nilmpatch --dry-run /data/house_reports_nan/ /data/house_reports_nan_v2/
  nilmpatch audit /data/house_reports_nan/`,
		Args:          cobra.MinimumNArgs(1),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid by now; later errors are not usage errors.
			cmd.SilenceUsage = true
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return a.runPatch(cmd.OutOrStdout(), args, dryRun)
		},
	}

	root.Flags().Bool("dry-run", false, "report intended changes without writing")
	root.PersistentFlags().String("config", "", "config file path (default: ./config/nilmpatch.yaml)")
	root.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newAuditCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// setup loads configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var err error
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		a.cfg, err = config.LoadFromFile(configFile)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		a.cfg.Logging.Level = lvl
	}
	a.log, err = newLogger(cmd.ErrOrStderr(), a.cfg.Logging)
	return err
}

func newLogger(w io.Writer, lc config.LoggingConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	out := w
	if lc.Format != "json" {
		out = zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func (a *app) corrector() report.Corrector {
	return report.Corrector{Tolerance: a.cfg.Patch.Tolerance, Cap: a.cfg.Patch.EfficiencyCap}
}

func (a *app) relabeler() report.Relabeler {
	return report.Relabeler{Prefix: a.cfg.Patch.TitlePrefix}
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// --- Patch (root) ---

func (a *app) runPatch(out io.Writer, dirs []string, dryRun bool) error {
	w := walker.New(walker.Options{
		DryRun:         dryRun,
		Out:            out,
		Corrector:      a.corrector(),
		Relabeler:      a.relabeler(),
		AggregateFiles: a.cfg.Patch.AggregateFiles,
		Logger:         a.log,
	})

	total := 0
	for _, d := range dirs {
		if !isDir(d) {
			fmt.Fprintf(out, "Warning: %s is not a directory, skipping\n", d)
			a.log.Debug().Str("dir", d).Msg("skipping invalid target")
			continue
		}
		fmt.Fprintf(out, "Processing: %s\n", d)
		sum, err := w.Process(d)
		if err != nil {
			return err
		}
		a.log.Info().Str("dir", d).Int("modified", sum.Modified()).Bool("dry_run", dryRun).Msg("directory done")
		total += sum.Modified()
	}

	suffix := ""
	if dryRun {
		suffix = " (dry run)"
	}
	fmt.Fprintf(out, "\nDone. Patched %d files.%s\n", total, suffix)
	return nil
}

// --- Audit Command ---

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <dir> [dir ...]",
		Short: "Check reports for breakdowns off 100% and efficiencies above the cap",
		Long: `Audit reads every report in the given directories and lists those that
still violate the patch invariants. Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			workers, _ := cmd.Flags().GetInt("workers")
			if workers <= 0 {
				workers = a.cfg.Audit.Workers
			}

			auditor := &audit.Auditor{
				Tolerance:      a.cfg.Patch.Tolerance,
				Cap:            a.cfg.Patch.EfficiencyCap,
				Relabeler:      a.relabeler(),
				AggregateFiles: a.cfg.Patch.AggregateFiles,
				Workers:        workers,
			}
			return a.runAudit(cmd, auditor, args, strict)
		},
	}
	cmd.Flags().Bool("strict", false, "exit non-zero when any report fails")
	cmd.Flags().Int("workers", 0, "files read concurrently (default: audit.workers)")
	return cmd
}

func (a *app) runAudit(cmd *cobra.Command, auditor *audit.Auditor, dirs []string, strict bool) error {
	out := cmd.OutOrStdout()
	var all []audit.Finding
	for _, d := range dirs {
		if !isDir(d) {
			fmt.Fprintf(out, "Warning: %s is not a directory, skipping\n", d)
			continue
		}
		fmt.Fprintf(out, "Auditing: %s\n", d)
		findings, err := auditor.Directory(cmd.Context(), d)
		if err != nil {
			return err
		}
		for _, f := range findings {
			if f.OK() {
				fmt.Fprintf(out, "  ok    %s\n", f.Name)
				continue
			}
			fmt.Fprintf(out, "  FAIL  %s\n", f.Name)
			for _, issue := range f.Issues {
				fmt.Fprintf(out, "        - %s\n", issue)
			}
		}
		all = append(all, findings...)
	}

	t := audit.Summarize(all)
	fmt.Fprintf(out, "\nAudited %s files (%s): %s issues in %s files.\n",
		humanize.Comma(int64(t.Files)), humanize.Bytes(uint64(t.Bytes)),
		humanize.Comma(int64(t.Issues)), humanize.Comma(int64(t.Failed)))

	if strict && t.Failed > 0 {
		return fmt.Errorf("audit failed: %d of %d reports violate the patch invariants", t.Failed, t.Files)
	}
	return nil
}

// --- Status Command ---

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the effective patch policy and where each value comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintln(out, "  nilmpatch — Patch Policy")
			fmt.Fprintln(out, "═══════════════════════════════════════")
			fmt.Fprintf(out, "  Version: %s (%s)\n\n", version, commit)
			for _, s := range config.CheckSettings(a.cfg) {
				fmt.Fprintf(out, "  %-24s %-32s [%s]\n", s.Key+":", s.Value, s.Source)
			}
			fmt.Fprintln(out, "═══════════════════════════════════════")
			return nil
		},
	}
}

// --- Version Command ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "nilmpatch %s\n", version)
			fmt.Fprintf(out, "  commit:  %s\n", commit)
			fmt.Fprintf(out, "  built:   %s\n", date)
		},
	}
}
