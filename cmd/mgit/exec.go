package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/mgit/internal/commands"
	iexec "github.com/ShayCichocki/mgit/internal/exec"
)

var execCmd = &cobra.Command{
	Use:   "exec [command-to-execute]",
	Short: "Execute a shell command in every package",
	Long: `Execute a shell command inside the directory of every package.

A single argument is handed to the shell as written, so pipes and
redirections work when quoted:

  mgit exec "git status --short | head -n 5"

Several arguments are quoted and joined before they reach the shell:

  mgit exec git log -1 --oneline

Packages that are not checked out are reported and skipped; run
"mgit bootstrap" to download them.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := commands.NewExec(iexec.NewRunner(), afero.NewOsFs())
		return runCommand(cmd, command, append([]string{command.Name()}, args...))
	},
}

func init() {
	// Everything after the first argument belongs to the executed command.
	execCmd.Flags().SetInterspersed(false)
}
