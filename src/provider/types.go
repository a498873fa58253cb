package provider

import (
	"strings"
	"time"
)

// Person is the account the credentials authenticate as.
type Person struct {
	Name     string
	SelfLink string
	WebLink  string
}

// Repository is a remote git repository hosting the pushed snapshot.
type Repository struct {
	Name        string
	Path        string // e.g. "~user/+git/rockcraft-lpci-foo-1700000000"
	SelfLink    string
	WebLink     string
	GitHTTPSURL string
}

// StatusReport announces one CI build triggered by a pushed commit.
type StatusReport struct {
	Title       string
	CIBuildLink string
	Result      string
}

// Build is one remote CI build for a single architecture.
type Build struct {
	Link                 string
	Title                string
	ArchTag              string
	State                string
	LogURL               string
	WebLink              string
	DistroArchSeriesLink string
	DateBuilt            time.Time
}

var terminalStates = []string{"failed", "problem", "cancelled", "successfully"}

// IsTerminal reports whether the build will not change state again.
// Launchpad build states are free text such as "Successfully built" or
// "Failed to build", so classification is by substring.
func (b *Build) IsTerminal() bool {
	state := strings.ToLower(b.State)
	for _, s := range terminalStates {
		if strings.Contains(state, s) {
			return true
		}
	}
	return false
}

// IsSuccess reports whether the build finished successfully.
func (b *Build) IsSuccess() bool {
	return strings.Contains(strings.ToLower(b.State), "successfully")
}

// Arch returns the architecture of the build, taken from the last segment of
// its distro arch series link and falling back to the arch tag.
func (b *Build) Arch() string {
	link := strings.TrimRight(b.DistroArchSeriesLink, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 && i < len(link)-1 {
		return link[i+1:]
	}
	return b.ArchTag
}
