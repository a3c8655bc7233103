// Package version reports the mgit release, read from the VERSION file
// embedded at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the release string printed by "mgit version".
func Get() string {
	return strings.TrimSpace(versionContent)
}
