package cmd

import (
	"fmt"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/spf13/cobra"
)

// addReplayFlags adds the various flags for the replay command
func addReplayFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	replayCmd.Flags().SortFlags = false

	// Config file
	replayCmd.Flags().String("config", "", "path to config file")

	// Call sequence
	replayCmd.Flags().String("sequence", "", "hex-encoded call sequence to replay, as reported for a failed test case")

	// Check mode
	replayCmd.Flags().String("check-mode", "",
		fmt.Sprintf("when invariants are checked, %q or %q (unless a config file is provided, default is %q)",
			config.CheckModeCall, config.CheckModeSequence, defaultConfig.Fuzzing.CheckMode))

	// Logging color
	replayCmd.Flags().Bool("no-color", false, "disable colored terminal output")
	return nil
}

// updateProjectConfigWithReplayFlags will update the given projectConfig with any CLI arguments that were provided to
// the replay command
func updateProjectConfigWithReplayFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update check mode
	if cmd.Flags().Changed("check-mode") {
		projectConfig.Fuzzing.CheckMode, err = cmd.Flags().GetString("check-mode")
		if err != nil {
			return err
		}
	}

	// Update logging color mode
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}
	return nil
}
