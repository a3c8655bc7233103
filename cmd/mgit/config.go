package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/mgit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify mgit configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config.

User configuration is stored at ~/.config/mgit/config.yaml.
Project settings (packages, dependencies) live in mgit.json.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := projectRoot()
		if err != nil {
			return err
		}
		cfg, err := config.Load(root)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			fmt.Fprintf(out, "packages: %s\n", cfg.Packages)
			for _, key := range config.UserKeys {
				value, _ := config.GetValue(cfg, key)
				fmt.Fprintf(out, "%s: %s\n", key, value)
			}
			if cfg.ManifestPath != "" {
				fmt.Fprintf(out, "manifest: %s (%d dependencies)\n", cfg.ManifestPath, len(cfg.Dependencies))
			}
			return nil
		case 1:
			value, err := config.GetValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		default:
			user, err := config.LoadUser()
			if err != nil {
				return fmt.Errorf("load user config: %w", err)
			}
			if err := config.SetValue(user, args[0], args[1]); err != nil {
				return err
			}
			if err := config.Save(user); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			printStatus(out, "✓", fmt.Sprintf("Set %s = %s", args[0], args[1]), successColor)
			return nil
		}
	},
}
