package cmd

import (
	"fmt"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addFuzzFlags adds the various flags for the fuzz command to the provided flag set
func addFuzzFlags(flags *pflag.FlagSet) error {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	flags.SortFlags = false

	// Config file
	flags.String("config", "", "path to config file")

	// Number of workers
	flags.Int("workers", 0,
		fmt.Sprintf("number of fuzzer workers (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.Workers))

	// Timeout
	flags.Int("timeout", 0,
		fmt.Sprintf("number of seconds to run the fuzzer campaign for (unless a config file is provided, default is %d). 0 means that timeout is not enforced", defaultConfig.Fuzzing.Timeout))

	// Test limit
	flags.Uint64("test-limit", 0,
		fmt.Sprintf("number of calls to test before exiting (unless a config file is provided, default is %d). 0 means that test limit is not enforced", defaultConfig.Fuzzing.TestLimit))

	// Call sequence length
	flags.Int("seq-len", 0,
		fmt.Sprintf("calls to run in every sequence (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.CallSequenceLength))

	// Seed
	flags.Int64("seed", 0,
		"seed of the campaign's random provider. 0 derives a seed from the current time")

	// Participants
	flags.Int("participants", 0,
		fmt.Sprintf("number of participants besides the owner (unless a config file is provided, default is %d)", defaultConfig.Fuzzing.ClosedWorld.ParticipantCount))

	// Store backend
	flags.String("store", "",
		fmt.Sprintf("ledger store backend, %q or %q (unless a config file is provided, default is %q)",
			config.StoreBackendMemory, config.StoreBackendBolt, defaultConfig.Fuzzing.StoreBackend))

	// Check mode
	flags.String("check-mode", "",
		fmt.Sprintf("when invariants are checked, %q or %q (unless a config file is provided, default is %q)",
			config.CheckModeCall, config.CheckModeSequence, defaultConfig.Fuzzing.CheckMode))

	// Logging color
	flags.Bool("no-color", false, "disable colored terminal output")
	return nil
}

// updateProjectConfigWithFuzzFlags will update the given projectConfig with any CLI arguments that were provided to the fuzz command
func updateProjectConfigWithFuzzFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update number of workers
	if cmd.Flags().Changed("workers") {
		projectConfig.Fuzzing.Workers, err = cmd.Flags().GetInt("workers")
		if err != nil {
			return err
		}
	}

	// Update timeout
	if cmd.Flags().Changed("timeout") {
		projectConfig.Fuzzing.Timeout, err = cmd.Flags().GetInt("timeout")
		if err != nil {
			return err
		}
	}

	// Update test limit
	if cmd.Flags().Changed("test-limit") {
		projectConfig.Fuzzing.TestLimit, err = cmd.Flags().GetUint64("test-limit")
		if err != nil {
			return err
		}
	}

	// Update sequence length
	if cmd.Flags().Changed("seq-len") {
		projectConfig.Fuzzing.CallSequenceLength, err = cmd.Flags().GetInt("seq-len")
		if err != nil {
			return err
		}
	}

	// Update seed
	if cmd.Flags().Changed("seed") {
		projectConfig.Fuzzing.Seed, err = cmd.Flags().GetInt64("seed")
		if err != nil {
			return err
		}
	}

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
