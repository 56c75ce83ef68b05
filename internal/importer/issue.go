package importer

import (
	"fmt"

	"github.com/matsen/bepress/internal/journal"
	"github.com/sirupsen/logrus"
)

// resolveIssue finds the published issue for the request's volume and number
// or creates it from the article's publication date.
func (r *run) resolveIssue() error {
	is, err := r.findOrCreateIssue()
	if err != nil {
		return err
	}
	if is == nil {
		return r.fail(MissingIssue, r.titleParams())
	}
	r.result.Issue = *is
	return nil
}

func (r *run) findOrCreateIssue() (*journal.Issue, error) {
	issues := r.imp.deps.Issues
	volume, number := leadingInt(r.req.Volume), leadingInt(r.req.Number)

	existing, err := issues.FindPublishedIssue(r.journalID(), volume, number)
	if err != nil {
		return nil, fmt.Errorf("finding issue: %w", err)
	}
	if existing != nil {
		r.log.WithField("issue", existing.ID).Debug("Reusing issue")
		return existing, nil
	}

	pubDate, _ := r.article.ChildValue("publication-date")
	date, ok := parseIssueDate(pubDate)
	if !ok {
		r.entries = append(r.entries, newEntry(MissingPubDate, r.titleParams()))
		return nil, nil
	}

	created, err := issues.CreateIssue(journal.Issue{
		JournalID:     r.journalID(),
		Volume:        volume,
		Number:        number,
		Year:          date.Year(),
		Title:         textIn(r.primary, fmt.Sprintf("Vol. %s, No. %s (%d)", r.req.Volume, r.req.Number, date.Year())),
		DatePublished: date,
		Published:     true,
		Current:       false,
		AccessStatus:  journal.AccessOpen,
		ShowVolume:    true,
		ShowNumber:    true,
		ShowYear:      true,
		ShowTitle:     false,
	})
	if err != nil || created.ID == 0 {
		r.log.WithError(err).Warn("Issue not created")
		return nil, nil
	}

	id := created.ID
	r.track("issue", func() error { return issues.DeleteIssue(id) })
	r.result.IssueCreated = true
	r.log.WithFields(logrus.Fields{"issue": id, "date": date.Format("2006-01-02")}).Info("Created issue")
	return &created, nil
}
