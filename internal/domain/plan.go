package domain

// ReleasePlan holds all metadata related to a release being cut.
type ReleasePlan struct {
	Version    *Version
	Label      string
	Date       string
	Notes      string
	BranchName string
	TagName    string
	PRBody     string
}
