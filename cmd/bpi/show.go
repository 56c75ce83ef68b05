package main

import (
	"strconv"
	"strings"

	"github.com/matsen/bepress/internal/journal"
	"github.com/matsen/bepress/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(showCmd)
}

var showCmd = &cobra.Command{
	Use:   "show <submission-id>",
	Short: "Show an imported article",
	Long: `Show an imported article: its submission, current publication, issue,
authors, galleys and the editors assigned to it.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

// ShowResponse is everything stored for one imported article.
type ShowResponse struct {
	Submission  *journal.Submission       `json:"submission"`
	Publication *journal.Publication      `json:"publication"`
	Issue       *journal.Issue            `json:"issue"`
	Authors     []journal.Author          `json:"authors"`
	Galleys     []journal.Galley          `json:"galleys"`
	Assignments []journal.StageAssignment `json:"stage_assignments"`
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitWithError(ExitDataError, "invalid submission id: %s", args[0])
	}

	db := openDB(loadConfig())
	defer db.Close()

	resp, err := loadArticle(db, id)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if resp == nil {
		exitWithError(ExitDataError, "submission not found: %d", id)
	}

	if !humanOutput {
		return outputJSON(resp)
	}

	l := resp.Submission.Locale
	outputHuman("Submission %d: %s\n", resp.Submission.ID, resp.Publication.Title.Get(l))
	if resp.Issue != nil {
		outputHuman("  Issue:    %s\n", resp.Issue.Title.Get(l))
	}
	names := make([]string, len(resp.Authors))
	for i, a := range resp.Authors {
		names[i] = a.FullName(l)
	}
	outputHuman("  Authors:  %s\n", strings.Join(names, ", "))
	if resp.Publication.DOI != "" {
		outputHuman("  DOI:      %s\n", resp.Publication.DOI)
	}
	outputHuman("  Galleys:  %d\n", len(resp.Galleys))
	outputHuman("  Editors:  %d assigned\n", len(resp.Assignments))
	return nil
}

// loadArticle reads a submission and what hangs off its current publication.
// It returns nil when the submission does not exist.
func loadArticle(db *storage.DB, id int64) (*ShowResponse, error) {
	sub, err := db.GetSubmissionByID(id)
	if err != nil || sub == nil {
		return nil, err
	}
	resp := &ShowResponse{Submission: sub}

	if resp.Publication, err = db.GetPublicationByID(sub.CurrentPublicationID); err != nil {
		return nil, err
	}
	if resp.Publication == nil {
		resp.Publication = &journal.Publication{}
	}
	if resp.Publication.IssueID != 0 {
		if resp.Issue, err = db.GetIssueByID(resp.Publication.IssueID); err != nil {
			return nil, err
		}
	}
	if resp.Authors, err = db.GetAuthorsByPublication(resp.Publication.ID); err != nil {
		return nil, err
	}
	if resp.Galleys, err = db.GetGalleysByPublication(resp.Publication.ID); err != nil {
		return nil, err
	}
	if resp.Assignments, err = db.GetStageAssignments(sub.ID); err != nil {
		return nil, err
	}
	return resp, nil
}
