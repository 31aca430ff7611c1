package cmd

import (
	"fmt"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Overwrite without prompting
	initCmd.Flags().Bool("force", false, "overwrite an existing configuration file without prompting")

	// Participants
	initCmd.Flags().Int("participants", 0,
		fmt.Sprintf("number of participants besides the owner (default is %d)", defaultConfig.Fuzzing.ClosedWorld.ParticipantCount))

	// Store backend
	initCmd.Flags().String("store", "",
		fmt.Sprintf("ledger store backend, %q or %q (default is %q)",
			config.StoreBackendMemory, config.StoreBackendBolt, defaultConfig.Fuzzing.StoreBackend))
	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update participant count
	if cmd.Flags().Changed("participants") {
		projectConfig.Fuzzing.ClosedWorld.ParticipantCount, err = cmd.Flags().GetInt("participants")
		if err != nil {
			return err
		}
	}

	// Update store backend
	if cmd.Flags().Changed("store") {
		projectConfig.Fuzzing.StoreBackend, err = cmd.Flags().GetString("store")
		if err != nil {
			return err
		}
	}
	return nil
}
