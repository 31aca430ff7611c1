package cmd

import (
	"github.com/crytic/tokenfuzz/cmd/exitcodes"
	"github.com/crytic/tokenfuzz/fuzzing"
	"github.com/crytic/tokenfuzz/fuzzing/calls"
	"github.com/crytic/tokenfuzz/logging/colors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// replayCmd represents the command provider for replaying a failing call sequence
var replayCmd = &cobra.Command{
	Use:               "replay",
	Short:             "Replays a call sequence",
	Long:              `Replays a hex-encoded call sequence, as reported for a failed test case, against a freshly set up ledger and checks every invariant`,
	Args:              cmdValidateFuzzArgs,
	ValidArgsFunction: cmdValidFuzzArgs,
	RunE:              cmdRunReplay,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the replay command
	err := addReplayFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the replay command", err)
	}

	// Add the replay command and its associated flags to the root command
	rootCmd.AddCommand(replayCmd)
}

// cmdRunReplay executes the CLI replay command. The project configuration is resolved the same way the fuzz command
// resolves it, as the call sequence only replays identically against the same closed world.
func cmdRunReplay(cmd *cobra.Command, args []string) error {
	projectConfig, err := readProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithReplayFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	if err = projectConfig.Validate(); err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}

	closeLogs, err := setupGlobalLogger(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	defer closeLogs()

	// Decode the call sequence to replay
	reproducer, err := cmd.Flags().GetString("sequence")
	if err != nil {
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	if reproducer == "" {
		err = errors.New("no call sequence was provided, use --sequence")
		cmdLogger.Error("Failed to run the replay command", err)
		return err
	}
	sequence, err := calls.DecodeCallSequenceHex(reproducer)
	if err != nil {
		cmdLogger.Error("Failed to decode the call sequence", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	cmdLogger.Info("Replaying ", colors.Bold, len(sequence), colors.Reset, " call(s)")
	executed, failure, err := fuzzing.ReplayCallSequence(*projectConfig, sequence)
	if err != nil {
		cmdLogger.Error("Failed to replay the call sequence", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}
	cmdLogger.Info("Executed call sequence:\n", executed.Log())

	if failure != nil {
		cmdLogger.Error(colors.RedBold, "[FAILED] ", colors.Bold, "Invariant Test: ", failure.Kind, colors.Reset, "\n", failure.Err.Error())
		return exitcodes.NewErrorWithExitCode(failure.Err, exitcodes.ExitCodeTestFailed)
	}
	cmdLogger.Info(colors.GreenBold, "[PASSED] ", colors.Reset, "the call sequence violated no invariant")
	return nil
}
