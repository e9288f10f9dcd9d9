package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/treedit/internal/engine"
)

var planShowDiff bool

var planCmd = &cobra.Command{
	Use:   "plan <listing>",
	Short: "Show the operations an edited listing would perform",
	Long: `Parse an edited listing and print the filesystem operations it implies, in
the order they would run. Nothing is changed. Use "-" to read the listing from
stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		data, err := readListing(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		eng := s.newEngine()
		result, err := eng.Plan(context.Background(), &engine.PlanRequest{Listing: data})
		if err != nil {
			return err
		}

		if jsonOutput {
			return outputJSON(result)
		}

		if planShowDiff && !result.Unchanged {
			original, err := eng.RenderSnapshot(result.SnapshotID)
			if err != nil {
				return err
			}
			diff, err := unifiedDiff(original, data, "rendered", args[0])
			if err != nil {
				return fmt.Errorf("failed to diff listing: %w", err)
			}
			PrintSection("Listing Changes")
			PrintUnifiedDiff(diff)
		}

		PrintPlan(result)
		return nil
	},
}

func init() {
	planCmd.Flags().BoolVarP(&planShowDiff, "diff", "d", false, "Also show a unified diff of the listing edits")
}
