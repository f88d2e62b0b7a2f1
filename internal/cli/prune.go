package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mms-alerts/internal/app"
)

var (
	pruneOlderThan string
	pruneDryRun    bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete signal history older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneOlderThan == "" {
			return fmt.Errorf("--older-than must be provided")
		}

		olderThan, err := time.Parse(time.RFC3339, pruneOlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value: %w", err)
		}

		opts := app.PruneOptions{
			OlderThan: olderThan,
			DryRun:    pruneDryRun,
		}

		return getApp().Prune(cmd.Context(), opts)
	},
}

func init() {
	pruneCmd.Flags().StringVar(&pruneOlderThan, "older-than", "", "Cutoff timestamp (RFC3339, exclusive)")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "Report what would be deleted without deleting")
}
