package commands

import (
	"fmt"
	"strings"
)

// OutcomeKind names the variant of an Outcome.
type OutcomeKind string

const (
	OutcomeSuccess     OutcomeKind = "success"
	OutcomeUnavailable OutcomeKind = "unavailable"
	OutcomeFailure     OutcomeKind = "failure"
)

// Outcome is the tagged result of running a command for one package.
// It is implemented by Success, Unavailable and Failure only.
type Outcome interface {
	Kind() OutcomeKind
	outcome()
}

// Success holds the captured output of a command that completed.
type Success struct {
	Output string
}

// Unavailable reports a package that is not checked out locally.
type Unavailable struct {
	Message string
}

// Failure reports a command that could not run or exited non-zero.
type Failure struct {
	Message string
}

func (Success) Kind() OutcomeKind     { return OutcomeSuccess }
func (Unavailable) Kind() OutcomeKind { return OutcomeUnavailable }
func (Failure) Kind() OutcomeKind     { return OutcomeFailure }

func (Success) outcome()     {}
func (Unavailable) outcome() {}
func (Failure) outcome()     {}

// unavailable builds the outcome for a package missing from disk.
func unavailable(packageName string) Unavailable {
	return Unavailable{
		Message: fmt.Sprintf("Package %q is not available. Run \"mgit bootstrap\" in order to download the package.", packageName),
	}
}

// failed builds a Failure whose first line reads "Error: <message>".
// Any further lines of the error text are kept as they are.
func failed(err error) Failure {
	return Failure{Message: "Error: " + strings.TrimRight(err.Error(), "\n")}
}
