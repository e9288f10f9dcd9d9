package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/treedit/internal/config"
	"github.com/danieljhkim/treedit/internal/fsops"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize settings",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current settings to the settings file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		path := settingsPath(s)
		if err := config.Write(fsops.NewOSFS(), path, s.settings, configInitForce); err != nil {
			return err
		}
		PrintSuccess(fmt.Sprintf("Wrote settings to %s", path))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(s.settings)
		}
		data, err := s.settings.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings and state locations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSession()
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(s.paths)
		}
		PrintLabelValue("Settings", settingsPath(s))
		PrintLabelValue("Snapshots", s.paths.Snapshots)
		PrintLabelValue("Log file", s.paths.LogFile)
		return nil
	},
}

func settingsPath(s *session) string {
	if configPath != "" {
		return configPath
	}
	return s.paths.Config
}

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing settings file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
