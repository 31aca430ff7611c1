package cmd

import (
	"testing"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUpdateProjectConfigWithFuzzFlags verifies that only the flags which were set override the configuration.
func TestUpdateProjectConfigWithFuzzFlags(t *testing.T) {
	// A fresh command keeps the registered fuzz command's flags untouched.
	command := &cobra.Command{Use: "fuzz"}
	require.NoError(t, addFuzzFlags(command.Flags()))
	require.NoError(t, command.Flags().Parse([]string{
		"--workers", "3",
		"--test-limit", "5000",
		"--seed", "-42",
		"--participants", "8",
		"--store", config.StoreBackendBolt,
		"--check-mode", config.CheckModeSequence,
	}))

	projectConfig := config.GetDefaultProjectConfig()
	require.NoError(t, updateProjectConfigWithFuzzFlags(command, projectConfig))

	assert.Equal(t, 3, projectConfig.Fuzzing.Workers)
	assert.EqualValues(t, 5_000, projectConfig.Fuzzing.TestLimit)
	assert.EqualValues(t, -42, projectConfig.Fuzzing.Seed)
	assert.Equal(t, 8, projectConfig.Fuzzing.ClosedWorld.ParticipantCount)
	assert.Equal(t, config.StoreBackendBolt, projectConfig.Fuzzing.StoreBackend)
	assert.Equal(t, config.CheckModeSequence, projectConfig.Fuzzing.CheckMode)

	// Flags which were not set leave the configuration untouched.
	defaults := config.GetDefaultProjectConfig()
	assert.Equal(t, defaults.Fuzzing.CallSequenceLength, projectConfig.Fuzzing.CallSequenceLength)
	assert.Equal(t, defaults.Fuzzing.Timeout, projectConfig.Fuzzing.Timeout)
	assert.False(t, projectConfig.Logging.NoColor)
	assert.NoError(t, projectConfig.Validate())
}
