package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ripple-dev/ripple/internal/config"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default ripple.json",
		Long: `Write a default ripple.json in the current directory.

The file is optional: the CLI and library fall back to the same
defaults when it is absent. Writing it out gives you a template to
edit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing ripple.json")

	return cmd
}

func runInit(force bool) error {
	if config.Exists(".") && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", config.ConfigFileName)
	}

	if err := config.New().SaveTo(config.ConfigFileName); err != nil {
		return err
	}
	success("wrote %s", config.ConfigFileName)
	return nil
}
