package main

import (
	"github.com/matsen/bepress/internal/storage"
	"github.com/spf13/cobra"
)

var ledgerFailed bool

func init() {
	ledgerCmd.Flags().BoolVar(&ledgerFailed, "failed", false, "List only records whose latest attempt failed")
	rootCmd.AddCommand(ledgerCmd)
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Summarize the import ledger",
	Long: `Summarize the import ledger: how many records were imported and which
records still fail. Only the latest attempt of each record counts.`,
	Args: cobra.NoArgs,
	RunE: runLedger,
}

// LedgerSummary counts the latest outcome of every recorded source.
type LedgerSummary struct {
	Imported int                   `json:"imported"`
	Failed   int                   `json:"failed"`
	Failures []storage.LedgerEntry `json:"failures,omitempty"`
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	entries, err := storage.ReadLedger(cfg.Ledger)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	summary := summarizeLedger(entries)

	if !humanOutput {
		if ledgerFailed {
			if summary.Failures == nil {
				summary.Failures = []storage.LedgerEntry{}
			}
			return outputJSON(summary.Failures)
		}
		return outputJSON(summary)
	}

	if !ledgerFailed {
		outputHuman("Imported: %d\nFailed:   %d\n", summary.Imported, summary.Failed)
	}
	for _, e := range summary.Failures {
		outputHuman("%s  %s\n", e.Time.Format("2006-01-02 15:04"), e.Source)
		for _, msg := range e.Errors {
			outputHuman("    %s\n", msg)
		}
	}
	return nil
}

// summarizeLedger keeps the latest entry per source, in first-seen order.
func summarizeLedger(entries []storage.LedgerEntry) LedgerSummary {
	latest := make(map[string]storage.LedgerEntry)
	var order []string
	for _, e := range entries {
		if e.Outcome == storage.OutcomeSkipped {
			continue
		}
		if _, seen := latest[e.Source]; !seen {
			order = append(order, e.Source)
		}
		latest[e.Source] = e
	}

	var s LedgerSummary
	for _, src := range order {
		e := latest[src]
		switch e.Outcome {
		case storage.OutcomeImported:
			s.Imported++
		case storage.OutcomeFailed:
			s.Failed++
			s.Failures = append(s.Failures, e)
		}
	}
	return s
}
