package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired automatic maintenance windows",
	Long:  "Delete all maintenance windows created by this tool whose end time has passed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		requester := newRequester(cfg, logger)
		deleted, err := requester.Cleanup(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d expired maintenance windows\n", len(deleted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
