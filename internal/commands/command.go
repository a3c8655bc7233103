// Package commands implements the per-package commands mgit runs across the
// packages of a project.
//
// Every command follows the same two step contract: BeforeExecute validates
// the user's input once per batch, then Execute runs for each package and
// reports its outcome as a Response. Execute never fails; a package that is
// missing or whose command fails produces a Response with a populated error
// channel so the batch can move on to the next package.
package commands

import (
	"context"
)

// Command is a subcommand that can be run against every package.
type Command interface {
	// Name returns the subcommand token, e.g. "exec".
	Name() string
	// BeforeExecute validates the full argument list, including the
	// subcommand token itself. It runs once before any package is touched.
	BeforeExecute(args []string) error
	// Execute runs the command for a single package using dir as the
	// working directory context.
	Execute(ctx context.Context, task Task, dir DirectoryContext) Response
}

// Options holds the invocation-wide settings shared by every task.
type Options struct {
	// Cwd is the absolute path of the invocation root.
	Cwd string `json:"cwd" yaml:"cwd"`
	// PackagesDir is the path, relative to Cwd, where packages live.
	PackagesDir string `json:"packages" yaml:"packages"`
}

// Repository describes where a package comes from and where it is checked out.
type Repository struct {
	// Directory is the package's folder name inside PackagesDir.
	Directory string `json:"directory" yaml:"directory"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Branch    string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// Task is the unit of work handed to Execute for one package.
type Task struct {
	PackageName string     `json:"package_name" yaml:"package_name"`
	Options     Options    `json:"options" yaml:"options"`
	Repository  Repository `json:"repository" yaml:"repository"`
	// Arguments is the command vector with the subcommand token removed.
	Arguments []string `json:"arguments" yaml:"arguments"`
}

// Logs holds the messages emitted while executing a task, in emission order.
type Logs struct {
	Info  []string `json:"info" yaml:"info"`
	Error []string `json:"error" yaml:"error"`
}

// Response is the outcome of executing a command for one package.
type Response struct {
	PackageName string  `json:"package_name" yaml:"package_name"`
	Outcome     Outcome `json:"-" yaml:"-"`
	Logs        Logs    `json:"logs" yaml:"logs"`
}

// Failed reports whether the response carries any error message.
func (r Response) Failed() bool {
	return len(r.Logs.Error) > 0
}

// NewResponse maps an outcome onto the info and error log channels.
func NewResponse(packageName string, outcome Outcome) Response {
	resp := Response{
		PackageName: packageName,
		Outcome:     outcome,
		Logs:        Logs{Info: []string{}, Error: []string{}},
	}

	switch o := outcome.(type) {
	case Success:
		resp.Logs.Info = append(resp.Logs.Info, o.Output)
	case Unavailable:
		resp.Logs.Error = append(resp.Logs.Error, o.Message)
	case Failure:
		resp.Logs.Error = append(resp.Logs.Error, o.Message)
	}

	return resp
}
