package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/label-compliance/internal/compliance"
	"github.com/ironsheep/label-compliance/internal/report"
)

var checkCmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Check label images or PDFs",
	Long: `Check one or more label images or PDFs and write a report.

Examples:
  labelcheck check label.jpg
  labelcheck check scans/*.pdf --workers 4 --out report.jsonl
  labelcheck check *.png --format xlsx --out report.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringP("format", "f", "json", "report format (json, xlsx)")
	checkCmd.Flags().StringP("out", "o", "", "report file (default: stdout)")
	checkCmd.Flags().IntP("workers", "w", 2, "number of files checked concurrently")
	checkCmd.Flags().Duration("timeout", 5*time.Minute, "time limit per file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	workers, _ := cmd.Flags().GetInt("workers")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if format != "json" && format != "xlsx" {
		return fmt.Errorf("invalid output format: %s (must be json or xlsx)", format)
	}
	if workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", workers)
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	checker, err := compliance.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	entries := checkFiles(cmd.Context(), checker, args, workers, timeout)

	var out io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case "xlsx":
		err = report.WriteXLSX(out, entries, checker.Rules().Names())
	default:
		err = report.WriteJSONL(out, entries)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	failed := 0
	for _, e := range entries {
		if e.Err != nil {
			failed++
		}
	}
	logger.Info("batch complete", "files", len(entries), "errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be checked", failed, len(entries))
	}
	return nil
}

// checkFiles runs up to workers checks at a time. Per-file failures are
// recorded in the entries; only cancellation stops the batch early.
func checkFiles(ctx context.Context, checker *compliance.Checker, paths []string, workers int, timeout time.Duration) []report.Entry {
	entries := make([]report.Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		entries[i].Source = path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				entries[i].Err = err
				return nil
			}
			fctx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()

			res, err := checker.CheckFile(fctx, path)
			if err != nil {
				entries[i].Err = err
				if errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}
			entries[i].Result = res
			return nil
		})
	}
	_ = g.Wait()
	return entries
}
