package main

import (
	"strings"

	"github.com/matsen/bepress/internal/storage"
	"github.com/spf13/cobra"
)

var searchLimit int

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", DefaultSearchLimit, "Maximum results to return")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search imported articles",
	Long: `Search the titles, abstracts, authors, keywords and galley text of
imported articles.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	db := openDB(loadConfig())
	defer db.Close()

	query := strings.Join(args, " ")
	hits, err := db.SearchSubmissions(query, searchLimit)
	if err != nil {
		exitWithError(ExitError, "searching: %v", err)
	}
	if hits == nil {
		hits = []storage.SearchHit{}
	}

	if !humanOutput {
		return outputJSON(hits)
	}
	if len(hits) == 0 {
		outputHuman("No articles found for %q\n", query)
		return nil
	}
	outputHuman("Found %d articles:\n\n", len(hits))
	for _, h := range hits {
		outputHuman("  %5d  %s\n", h.SubmissionID, truncateString(h.Title, SearchTitleMaxLen))
	}
	return nil
}
