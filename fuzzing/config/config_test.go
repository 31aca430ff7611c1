package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/tokenfuzz/registry"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnmarshalAmounts will test the unmarshalling of an Amount from a string
func TestUnmarshalAmounts(t *testing.T) {
	// Create the list of test cases
	testCases := []struct {
		input    string
		expected *uint256.Int
	}{
		{"\"\"", uint256.NewInt(0)},
		{"\"1\"", uint256.NewInt(1)},
		{"\"100\"", uint256.NewInt(100)},
		{"\"0\"", uint256.NewInt(0)},
		{"\"1e5\"", uint256.NewInt(100000)},
		{"\"10E-1\"", uint256.NewInt(1)},
		{"\"0x1337\"", uint256.NewInt(4919)},
		{"\"0X10\"", uint256.NewInt(16)},
		{"\"0x" + "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff\"", new(uint256.Int).SetAllOne()},
	}

	// Iterate over the test cases and unmarshal the input string into an Amount
	for _, tc := range testCases {
		var a Amount
		require.NoError(t, json.Unmarshal([]byte(tc.input), &a), tc.input)
		assert.True(t, a.Uint256().Eq(tc.expected), "Unmarshal(%s) = %s, want %s", tc.input, a.String(), tc.expected.Dec())
	}
}

// TestUnmarshalInvalidAmounts checks that amounts which are not unsigned 256-bit integers are rejected.
func TestUnmarshalInvalidAmounts(t *testing.T) {
	inputs := []string{
		"\"-1\"",
		"\"1.5\"",
		"\"abc\"",
		"\"0xzz\"",
		"\"1e78\"",
		"\"0x1" + "0000000000000000000000000000000000000000000000000000000000000000\"",
		"12",
	}
	for _, input := range inputs {
		var a Amount
		assert.Error(t, json.Unmarshal([]byte(input), &a), input)
	}
}

// TestMarshalAmounts will test the marshalling of an Amount to a string
func TestMarshalAmounts(t *testing.T) {
	// Create the list of test cases
	testCases := []struct {
		input    Amount
		expected string
	}{
		{NewAmount(0), "\"0\""},
		{NewAmount(1), "\"1\""},
		{NewAmountFromUint256(new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(36))), "\"1000000000000000000000000000000000000\""},
	}

	// Iterate over the test cases and marshal the Amount to a string
	for _, tc := range testCases {
		out, err := json.Marshal(tc.input)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, string(out))
	}
}

// TestDefaultProjectConfig checks that the default configuration is valid and survives a write/read cycle.
func TestDefaultProjectConfig(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	require.NoError(t, projectConfig.Validate())

	path := filepath.Join(t.TempDir(), "tokenfuzz.json")
	require.NoError(t, projectConfig.WriteToFile(path))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, projectConfig, read)
}

// TestReadProjectConfigOverridesDefaults checks that values present in a file replace the defaults while absent
// values keep them.
func TestReadProjectConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenfuzz.json")
	content := `{
		"fuzzing": {
			"workers": 2,
			"actionWeights": {"mint": 0},
			"closedWorld": {"participantCount": 3, "participantBalance": "1e3", "initialSupply": "0x2710"}
		},
		"logging": {"level": "debug"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	read, err := ReadProjectConfigFromFile(path)
	require.NoError(t, err)
	require.NoError(t, read.Validate())

	assert.Equal(t, 2, read.Fuzzing.Workers)
	assert.Equal(t, 100, read.Fuzzing.CallSequenceLength)
	assert.EqualValues(t, 0, read.Fuzzing.ActionWeights["mint"])
	assert.EqualValues(t, 25, read.Fuzzing.ActionWeights["transfer"])
	assert.Equal(t, zerolog.DebugLevel, read.Logging.Level)

	handlerConfig, err := read.Fuzzing.ClosedWorld.HandlerConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, handlerConfig.ParticipantCount)
	assert.EqualValues(t, 1000, handlerConfig.ParticipantBalance.Uint64())
	assert.EqualValues(t, 10000, handlerConfig.InitialSupply.Uint64())
}

// TestValidate checks that malformed configurations are rejected.
func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *ProjectConfig)
	}{
		{"workers", func(p *ProjectConfig) { p.Fuzzing.Workers = 0 }},
		{"sequence length", func(p *ProjectConfig) { p.Fuzzing.CallSequenceLength = 0 }},
		{"reset limit", func(p *ProjectConfig) { p.Fuzzing.WorkerResetLimit = 0 }},
		{"shrink limit", func(p *ProjectConfig) { p.Fuzzing.ShrinkLimit = -1 }},
		{"check mode", func(p *ProjectConfig) { p.Fuzzing.CheckMode = "never" }},
		{"store backend", func(p *ProjectConfig) { p.Fuzzing.StoreBackend = "leveldb" }},
		{"unknown action", func(p *ProjectConfig) { p.Fuzzing.ActionWeights["steal"] = 1 }},
		{"no actions", func(p *ProjectConfig) { p.Fuzzing.ActionWeights = map[string]uint64{"mint": 0} }},
		{"participants", func(p *ProjectConfig) { p.Fuzzing.ClosedWorld.ParticipantCount = 0 }},
		{"underfunded", func(p *ProjectConfig) { p.Fuzzing.ClosedWorld.InitialSupply = NewAmount(10) }},
		{"owner address", func(p *ProjectConfig) { p.Fuzzing.ClosedWorld.OwnerAddress = "0x1234" }},
		{"participant address count", func(p *ProjectConfig) {
			p.Fuzzing.ClosedWorld.ParticipantAddresses = []string{"0x0000000000000000000000000000000000020000"}
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			projectConfig := GetDefaultProjectConfig()
			tc.mutate(projectConfig)
			assert.Error(t, projectConfig.Validate())
		})
	}
}

// TestClosedWorldAddresses checks that configured owner and participant addresses reach the handler config.
func TestClosedWorldAddresses(t *testing.T) {
	closedWorld := GetDefaultProjectConfig().Fuzzing.ClosedWorld
	closedWorld.ParticipantCount = 2
	closedWorld.OwnerAddress = "0x00000000000000000000000000000000000000aa"
	closedWorld.ParticipantAddresses = []string{
		"0x00000000000000000000000000000000000000bb",
		"00000000000000000000000000000000000000cc",
	}

	handlerConfig, err := closedWorld.HandlerConfig()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xaa"), handlerConfig.Owner)
	assert.Equal(t, []common.Address{common.HexToAddress("0xbb"), common.HexToAddress("0xcc")}, handlerConfig.Participants)

	closedWorld.OwnerAddress = ""
	closedWorld.ParticipantAddresses = nil
	handlerConfig, err = closedWorld.HandlerConfig()
	require.NoError(t, err)
	assert.Equal(t, common.Address{}, handlerConfig.Owner)
	assert.Empty(t, handlerConfig.Participants)
	assert.NotEqual(t, registry.DefaultOwner(), common.Address{})
}

// TestCheckVersion checks version constraint handling.
func TestCheckVersion(t *testing.T) {
	projectConfig := GetDefaultProjectConfig()
	assert.NoError(t, projectConfig.CheckVersion("0.1.0"))

	projectConfig.Version = ">= 0.1, < 1.0"
	assert.NoError(t, projectConfig.CheckVersion("0.3.2"))
	assert.Error(t, projectConfig.CheckVersion("1.2.0"))
	assert.Error(t, projectConfig.CheckVersion("not-a-version"))
}
