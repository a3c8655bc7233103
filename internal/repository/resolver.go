// Package repository turns manifest dependency entries into repository
// locations mgit can clone and run commands in.
package repository

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultURLTemplate clones over SSH from GitHub.
const DefaultURLTemplate = "git@github.com:${path}.git"

// DefaultBranch is used when a dependency does not pin a branch.
const DefaultBranch = "master"

// Info is the resolved location of a package.
type Info struct {
	URL       string
	Branch    string
	Directory string
}

// Resolver maps "org/repo#branch" dependency specs onto repository info.
type Resolver struct {
	// URLTemplate contains ${path}, replaced with the "org/repo" part of a spec.
	URLTemplate   string
	DefaultBranch string
}

// NewResolver creates a resolver, filling empty settings with defaults.
func NewResolver(urlTemplate, defaultBranch string) *Resolver {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if defaultBranch == "" {
		defaultBranch = DefaultBranch
	}
	return &Resolver{URLTemplate: urlTemplate, DefaultBranch: defaultBranch}
}

// Resolve returns the repository info for the package name and its spec.
func (r *Resolver) Resolve(name, spec string) (Info, error) {
	name = strings.TrimSpace(name)
	spec = strings.TrimSpace(spec)
	if name == "" {
		return Info{}, fmt.Errorf("resolve: empty package name")
	}
	if spec == "" {
		return Info{}, fmt.Errorf("resolve %s: empty repository spec", name)
	}

	location, branch, _ := strings.Cut(spec, "#")
	if branch == "" {
		branch = r.DefaultBranch
	}

	info := Info{
		Branch:    branch,
		Directory: Directory(name),
	}

	if isURL(location) {
		info.URL = location
		return info, nil
	}

	if strings.Count(location, "/") != 1 || strings.HasPrefix(location, "/") || strings.HasSuffix(location, "/") {
		return Info{}, fmt.Errorf("resolve %s: spec %q is not in org/repo form", name, spec)
	}
	info.URL = strings.ReplaceAll(r.URLTemplate, "${path}", location)
	return info, nil
}

// Directory returns the folder a package is checked out into: the package
// name without a leading "@scope/".
func Directory(name string) string {
	if strings.HasPrefix(name, "@") {
		if _, rest, ok := strings.Cut(name, "/"); ok {
			return rest
		}
	}
	return name
}

func isURL(location string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "file://", "git@"} {
		if strings.HasPrefix(location, prefix) {
			return true
		}
	}
	return filepath.IsAbs(location)
}
