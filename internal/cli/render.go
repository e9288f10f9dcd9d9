package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/treedit/internal/engine"
	"github.com/danieljhkim/treedit/internal/fsops"
)

var (
	renderOutput string
	renderHidden bool
)

var renderCmd = &cobra.Command{
	Use:   "render [dir...]",
	Short: "Render directories as an editable listing",
	Long: `Render one or more directories (default: the current directory) as a listing.

Each entry is printed with a stable id. Edit the listing and pass it to
'treedit plan' or 'treedit apply'. Arguments may be local paths or URLs such as
mem:///scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		urls, err := targetURLs(args)
		if err != nil {
			return err
		}

		showHidden := s.settings.Listing.ShowHidden
		if cmd.Flags().Changed("hidden") {
			showHidden = renderHidden
		}

		result, err := s.newEngine().Render(context.Background(), &engine.RenderRequest{
			URLs:       urls,
			ShowHidden: showHidden,
		})
		if err != nil {
			return err
		}

		if renderOutput != "" {
			if err := fsops.NewOSFS().AtomicWrite(renderOutput, result.Listing, 0644); err != nil {
				return fmt.Errorf("failed to write listing: %w", err)
			}
		}

		if jsonOutput {
			return outputJSON(renderOutputJSON{
				SnapshotID: result.SnapshotID,
				Entries:    result.Entries,
				Listing:    string(result.Listing),
				Output:     renderOutput,
			})
		}

		if renderOutput == "" {
			_, err := cmd.OutOrStdout().Write(result.Listing)
			return err
		}
		PrintSuccess(fmt.Sprintf("Rendered %s to %s", PrintCount(result.Entries, "entry", "entries"), renderOutput))
		PrintLabelValue("Snapshot", result.SnapshotID)
		return nil
	},
}

type renderOutputJSON struct {
	SnapshotID string `json:"snapshot_id"`
	Entries    int    `json:"entries"`
	Listing    string `json:"listing"`
	Output     string `json:"output,omitempty"`
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Write the listing to a file instead of stdout")
	renderCmd.Flags().BoolVarP(&renderHidden, "hidden", "a", false, "Include entries starting with a dot")
}
