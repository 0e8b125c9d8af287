package cmd

import (
	"github.com/fscifa/totepipe/actions"
	"github.com/fscifa/totepipe/constants"
	"github.com/spf13/cobra"
)

// newStageCmd returns the command that runs stage once and prints a summary.
func newStageCmd(stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   stage,
		Short: short,
		Long:  short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			results, err := runStage(ctx, cfg, actions.StageRequest{Stage: stage})
			if perr := printResults(cmd.OutOrStdout(), results); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
}

func init() {
	rootCmd.AddCommand(
		newStageCmd(constants.StageExtract, "Copy changed rows of the source tables to the raw bucket"),
		newStageCmd(constants.StageTransform, "Build the star schema from the latest raw files"),
		newStageCmd(constants.StageLoad, "Insert the latest star schema into the warehouse"),
		newStageCmd(constants.StageRun, "Run extract, transform and load in turn"),
	)
}
