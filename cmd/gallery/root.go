package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "gallery",
		Short:         "Maintain the thumbnails of the gallery",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newCreateCommand(&configFlag))
	rootCmd.AddCommand(newDeleteCommand(&configFlag))

	return rootCmd
}
