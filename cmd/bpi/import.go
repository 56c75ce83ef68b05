package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/matsen/bepress/internal/importer"
	"github.com/matsen/bepress/internal/storage"
	"github.com/spf13/cobra"
)

var (
	importVolume string
	importNumber string
)

func init() {
	importCmd.Flags().StringVar(&importVolume, "volume", "", "Issue volume")
	importCmd.Flags().StringVar(&importNumber, "number", "", "Issue number")
	addImportFlags(importCmd)
	importCmd.MarkFlagRequired("volume")
	importCmd.MarkFlagRequired("number")
	rootCmd.AddCommand(importCmd)
}

// addImportFlags registers the flags shared by import and batch.
func addImportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&journalFlag, "journal", "", "Journal path (default from config)")
	cmd.Flags().StringVar(&userFlag, "user", "", "Importing user (default from config)")
	cmd.Flags().StringVar(&editorFlag, "editor", "", "Editor assigned to the production stage (default from config)")
	cmd.Flags().StringVar(&genreFlag, "genre", "", "Genre key of the galley files (default SUBMISSION)")
}

var importCmd = &cobra.Command{
	Use:   "import <record.xml> <galley.pdf>...",
	Short: "Import one article",
	Long: `Import one article record with its PDF galleys.

Usage:
  bpi import --volume 5 --number 2 metadata.xml fulltext.pdf
  bpi import --volume 5 --number 2 --journal jcs metadata.xml.gz a.pdf b.pdf

The record may be gzip (.gz) or zstd (.zst) compressed. The issue for the
volume and number is reused when it exists, otherwise it is created from
the record's publication date.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runImport,
}

// ImportResponse is the response of a successful import.
type ImportResponse struct {
	Status string           `json:"status"`
	Result *importer.Result `json:"result"`
}

// ImportFailure is the response of a rejected import.
type ImportFailure struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

func runImport(cmd *cobra.Command, args []string) error {
	env := newImportEnv()
	defer env.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rec := record{Source: args[0], Volume: importVolume, Number: importNumber, Files: args[1:]}
	entry, res, err := env.importRecord(ctx, rec)
	if lerr := storage.AppendLedger(env.cfg.Ledger, entry); lerr != nil {
		outputHumanErr("warning: ledger not updated: %v\n", lerr)
	}

	if err != nil {
		if humanOutput {
			outputHumanErr("error: %s was not imported\n", rec.Source)
			for _, msg := range entry.Errors {
				outputHumanErr("  - %s\n", msg)
			}
		} else {
			outputJSON(ImportFailure{Error: err.Error(), Errors: entry.Errors})
		}
		os.Exit(exitCodeFor(err))
	}

	if humanOutput {
		outputHuman("Imported submission %d: %s\n", res.Submission.ID,
			truncateString(res.Publication.Title.Get(env.journal.PrimaryLocale), ImportTitleMaxLen))
		outputHuman("  Issue:   %d %s%s\n", res.Issue.ID, res.Issue.Title.Get(env.journal.PrimaryLocale), createdTag(res.IssueCreated))
		outputHuman("  Section: %d %s%s\n", res.Section.ID, res.Section.Title.Get(env.journal.PrimaryLocale), createdTag(res.SectionCreated))
		names := make([]string, len(res.Authors))
		for i, a := range res.Authors {
			names[i] = a.FullName(env.journal.PrimaryLocale)
		}
		outputHuman("  Authors: %s\n", strings.Join(names, ", "))
		outputHuman("  Galleys: %d\n", len(res.Galleys))
		return nil
	}
	return outputJSON(ImportResponse{Status: storage.OutcomeImported, Result: res})
}

func createdTag(created bool) string {
	if created {
		return " (new)"
	}
	return ""
}
