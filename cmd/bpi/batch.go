package main

import (
	"context"
	"errors"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/matsen/bepress/internal/importer"
	"github.com/matsen/bepress/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	batchDryRun bool
	batchRetry  bool
)

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "List the records that would be imported")
	batchCmd.Flags().BoolVar(&batchRetry, "retry", false, "Import records the ledger already marks as imported")
	addImportFlags(batchCmd)
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch <export-dir>",
	Short: "Import every article of a bepress export",
	Long: `Import every article of a bepress export directory.

Records are the metadata.xml files below the directory (optionally .gz or
.zst compressed). Volume and number are read from the vol*/iss* path
components, and the PDFs next to each record become its galleys.

Every outcome is appended to the import ledger. Records the ledger lists as
imported are skipped unless --retry is given. Imports are paced by the
configured rate (imports per second, 0 for unlimited).`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// BatchRecordResult is the per-record output of a batch.
type BatchRecordResult struct {
	Source       string   `json:"source"`
	Outcome      string   `json:"outcome"`
	SubmissionID int64    `json:"submission_id,omitempty"`
	Errors       []string `json:"errors,omitempty"`
}

// BatchResult summarizes a batch.
type BatchResult struct {
	Imported int    `json:"imported"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Duration string `json:"duration"`
}

// BatchDryRunResult lists the records a batch would import.
type BatchDryRunResult struct {
	WouldImport []record `json:"would_import"`
	WouldSkip   []string `json:"would_skip,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	records, err := discoverRecords(args[0])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	env := newImportEnv()
	defer env.db.Close()

	done := map[string]bool{}
	if !batchRetry {
		ledger, err := storage.ReadLedger(env.cfg.Ledger)
		if err != nil {
			exitWithError(ExitDataError, "reading ledger: %v", err)
		}
		done = storage.ImportedSources(ledger)
	}

	todo, skipped := partitionRecords(records, done)
	if batchDryRun {
		if humanOutput {
			for _, rec := range todo {
				outputHuman("import %s (vol %s, no %s, %d files)\n", rec.Source, rec.Volume, rec.Number, len(rec.Files))
			}
			for _, src := range skipped {
				outputHuman("skip   %s\n", src)
			}
			return nil
		}
		return outputJSON(BatchDryRunResult{WouldImport: todo, WouldSkip: skipped})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	limiter := newLimiter(env.cfg.Rate, env.cfg.Burst)
	start := time.Now()
	summary := BatchResult{Skipped: len(skipped)}
	code := ExitSuccess

	for _, src := range skipped {
		printBatchRecord(BatchRecordResult{Source: src, Outcome: storage.OutcomeSkipped})
	}

	for _, rec := range todo {
		if err := limiter.Wait(ctx); err != nil {
			logrus.WithError(err).Warn("Batch interrupted")
			code = ExitError
			break
		}

		entry, res, err := env.importRecord(ctx, rec)
		if lerr := storage.AppendLedger(env.cfg.Ledger, entry); lerr != nil {
			logrus.WithError(lerr).Warn("Ledger not updated")
		}

		out := BatchRecordResult{Source: rec.Source, Outcome: entry.Outcome, Errors: entry.Errors}
		if err == nil {
			summary.Imported++
			out.SubmissionID = res.Submission.ID
		} else {
			summary.Failed++
		}
		printBatchRecord(out)

		var rbErr *importer.RollbackError
		if errors.As(err, &rbErr) {
			logrus.WithError(err).Error("Stopping batch: rollback left state behind")
			code = ExitRollbackFailed
			break
		}
		if errors.Is(err, context.Canceled) {
			code = ExitError
			break
		}
	}

	summary.Duration = formatDuration(time.Since(start))
	if humanOutput {
		outputHuman("\nImported %d, failed %d, skipped %d in %s\n", summary.Imported, summary.Failed, summary.Skipped, summary.Duration)
	} else {
		outputJSON(summary)
	}
	if code != ExitSuccess {
		os.Exit(code)
	}
	return nil
}

// partitionRecords splits records into those to import and the sources of
// those already done.
func partitionRecords(records []record, done map[string]bool) ([]record, []string) {
	var todo []record
	var skipped []string
	for _, rec := range records {
		if done[rec.Source] {
			skipped = append(skipped, rec.Source)
			continue
		}
		todo = append(todo, rec)
	}
	return todo, skipped
}

// newLimiter paces imports at perSecond; zero or less means unlimited.
func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.NewLimiter(rate.Inf, 1)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

func printBatchRecord(out BatchRecordResult) {
	if !humanOutput {
		outputJSONCompact(out)
		return
	}
	switch out.Outcome {
	case storage.OutcomeImported:
		outputHuman("ok     %s -> submission %d\n", out.Source, out.SubmissionID)
		return
	case storage.OutcomeSkipped:
		if verbose {
			outputHuman("skip   %s\n", out.Source)
		}
		return
	}
	outputHuman("failed %s\n", out.Source)
	for _, msg := range out.Errors {
		outputHuman("         %s\n", truncateString(msg, 2*ImportTitleMaxLen))
	}
}
