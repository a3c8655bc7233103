package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/mgit/internal/commands"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Clone every package that is not checked out yet",
	Long: `Clone the repository of every dependency listed in mgit.json into the
packages directory. Packages that already exist are left untouched.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := commands.NewBootstrap(afero.NewOsFs())
		return runCommand(cmd, command, []string{command.Name()})
	},
}
