package journal

// DefaultCopyrightHolder returns the journal's default copyright holder.
// authorString is used when the policy credits the authors.
func (j Journal) DefaultCopyrightHolder(authorString string) Text {
	switch j.License.CopyrightHolderType {
	case CopyrightHolderAuthor:
		if authorString == "" {
			return nil
		}
		return Text{string(j.PrimaryLocale): authorString}
	case CopyrightHolderOther:
		return j.License.CopyrightHolderOther
	default:
		return j.Name
	}
}

// DefaultCopyrightYear returns the journal's default copyright year for a
// publication, or 0 when the basis date is unknown.
func (j Journal) DefaultCopyrightYear(issue *Issue, pub Publication) int {
	switch j.License.CopyrightYearBasis {
	case CopyrightYearSubmission:
		if pub.DatePublished.IsZero() {
			return 0
		}
		return pub.DatePublished.Year()
	default:
		if issue == nil || issue.DatePublished.IsZero() {
			return 0
		}
		return issue.DatePublished.Year()
	}
}

// DefaultLicenseURL returns the journal's default license URL.
func (j Journal) DefaultLicenseURL() string {
	return j.License.LicenseURL
}
