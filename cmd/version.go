package cmd

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information for Totepipe",
	Long:  `Show version information for Totepipe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		printVersion(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
