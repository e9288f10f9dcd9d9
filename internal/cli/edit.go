package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/treedit/internal/engine"
)

var (
	editYes      bool
	editSimulate bool
	editHidden   bool
)

// runEditor opens path in editor and waits for it to exit.
var runEditor = func(editor, path string) error {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return fmt.Errorf("no editor configured")
	}
	c := exec.Command(fields[0], append(fields[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", editor, err)
	}
	return nil
}

var editCmd = &cobra.Command{
	Use:   "edit [dir...]",
	Short: "Edit directories in $EDITOR and apply the result",
	Long: `Render directories (default: the current directory) to a temporary listing,
open it in the configured editor, then plan and apply the edits once the editor
exits. Closing the editor without changes does nothing.`,
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
			showHidden = editHidden
		}

		ctx := context.Background()
		eng := s.newEngine()
		rendered, err := eng.Render(ctx, &engine.RenderRequest{URLs: urls, ShowHidden: showHidden})
		if err != nil {
			return err
		}

		tmp, err := os.CreateTemp("", "treedit-*.txt")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		if _, err := tmp.Write(rendered.Listing); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to write listing: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to write listing: %w", err)
		}

		if err := runEditor(s.settings.ResolveEditor(), tmpPath); err != nil {
			return err
		}

		edited, err := os.ReadFile(tmpPath)
		if err != nil {
			return fmt.Errorf("failed to read edited listing: %w", err)
		}

		return runApply(ctx, s, edited, applyOptions{
			yes:      editYes,
			simulate: editSimulate,
		})
	},
}

func init() {
	editCmd.Flags().BoolVarP(&editYes, "yes", "y", false, "Apply without asking for confirmation")
	editCmd.Flags().BoolVar(&editSimulate, "simulate", false, "Run the plan in an in-memory sandbox only")
	editCmd.Flags().BoolVarP(&editHidden, "hidden", "a", false, "Include entries starting with a dot")
}
