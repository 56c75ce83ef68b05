package main

import (
	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	journalCmd.AddCommand(journalSeedCmd)
	journalCmd.AddCommand(journalShowCmd)
	rootCmd.AddCommand(journalCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Create and inspect journals",
}

var journalSeedCmd = &cobra.Command{
	Use:   "seed <seed.yml>",
	Short: "Create a journal from a seed file",
	Long: `Create a journal with its users, user groups and genres from a YAML file.

Example seed file:

  journal:
    path: jcs
    primary_locale: en_US
    name: {en_US: Journal of Coastal Studies}
    license:
      copyright_holder_type: author
      license_url: https://creativecommons.org/licenses/by/4.0/
  users:
    - {username: importer, email: importer@example.org}
  user_groups:
    - {role_id: 16, name: {en_US: Journal manager}, abbrev: JM, stages: [1, 3, 4, 5]}
    - {role_id: 65536, name: {en_US: Author}, abbrev: AU, stages: [1, 5]}
  genres:
    - key: submission

Users that already exist are reused.`,
	Args: cobra.ExactArgs(1),
	RunE: runJournalSeed,
}

var journalShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show a journal with its issues and sections",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalShow,
}

// JournalResponse describes a journal and what has been imported into it.
type JournalResponse struct {
	Journal  *journal.Journal  `json:"journal"`
	Issues   []journal.Issue   `json:"issues"`
	Sections []journal.Section `json:"sections"`
}

func runJournalSeed(cmd *cobra.Command, args []string) error {
	seed, err := storage.LoadSeed(args[0])
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	db := openDB(loadConfig())
	defer db.Close()

	res, err := db.ApplySeed(seed)
	if err != nil {
		exitWithError(ExitError, "seeding %s: %v", seed.Journal.Path, err)
	}

	if humanOutput {
		outputHuman("Created journal %s (%s)\n", res.Journal.Path, res.Journal.DisplayName())
		outputHuman("  Users: %d new, groups: %d, genres: %d\n", res.Users, res.UserGroups, res.Genres)
		return nil
	}
	return outputJSON(res)
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		journalFlag = args[0]
	}
	cfg := loadConfig()
	db := openDB(cfg)
	defer db.Close()

	j := resolveJournal(cfg, db)
	issues, err := db.ListIssues(j.ID)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	sections, err := db.ListSections(j.ID)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if !humanOutput {
		return outputJSON(JournalResponse{Journal: j, Issues: issues, Sections: sections})
	}

	outputHuman("%s (%s, %s)\n", j.DisplayName(), j.Path, j.PrimaryLocale)
	outputHuman("\nIssues:\n")
	if len(issues) == 0 {
		outputHuman("  (none)\n")
	}
	for _, is := range issues {
		outputHuman("  %4d  %s\n", is.ID, is.Title.Get(j.PrimaryLocale))
	}
	outputHuman("\nSections:\n")
	if len(sections) == 0 {
		outputHuman("  (none)\n")
	}
	for _, s := range sections {
		outputHuman("  %4d  %s\n", s.ID, s.Title.Get(j.PrimaryLocale))
	}
	return nil
}
