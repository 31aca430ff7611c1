package config

import (
	"encoding/json"
	"os"

	"github.com/Masterminds/semver"
	"github.com/crytic/tokenfuzz/handler"
	"github.com/crytic/tokenfuzz/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ProjectConfig describes the configuration for a fuzzing campaign.
type ProjectConfig struct {
	// Version is an optional semantic version constraint (e.g. ">= 0.3, < 1.0") the running tool must satisfy for
	// the configuration to be used.
	Version string `json:"version,omitempty"`

	// Fuzzing describes the configuration used in fuzzing campaigns.
	Fuzzing FuzzingConfig `json:"fuzzing"`

	// Logging describes the configuration used for logging.
	Logging LoggingConfig `json:"logging"`
}

// FuzzingConfig describes the configuration options used by the fuzzing.Fuzzer.
type FuzzingConfig struct {
	// Workers describes the amount of threads to use in fuzzing campaigns.
	Workers int `json:"workers"`

	// WorkerResetLimit describes how many call sequences a worker should test before it is destroyed and recreated
	// so that its store is released and reopened.
	WorkerResetLimit int `json:"workerResetLimit"`

	// Timeout describes a time in seconds for which the fuzzing operation should run. Providing negative or zero value
	// will result in no timeout.
	Timeout int `json:"timeout"`

	// TestLimit describes a threshold for the number of calls to test, after which it will exit. A zero value
	// indicates the test limit should not be enforced.
	TestLimit uint64 `json:"testLimit"`

	// CallSequenceLength describes the amount of calls generated for every call sequence.
	CallSequenceLength int `json:"callSequenceLength"`

	// Seed describes the seed of the campaign's random provider. A zero value derives a seed from the current time,
	// which is logged so the campaign can be reproduced.
	Seed int64 `json:"seed"`

	// CheckMode describes when invariants are checked: after every call (CheckModeCall) or once at the end of every
	// call sequence (CheckModeSequence).
	CheckMode string `json:"checkMode"`

	// ShrinkLimit describes the maximum amount of shrink attempts made on a failing call sequence.
	ShrinkLimit int `json:"shrinkLimit"`

	// StoreBackend describes the ledger store used by workers: StoreBackendMemory or StoreBackendBolt.
	StoreBackend string `json:"storeBackend"`

	// StoreDirectory describes the directory bolt stores are created in. If empty, a temporary directory is used.
	StoreDirectory string `json:"storeDirectory"`

	// ActionWeights describes the relative likelihood of each action kind ("approve", "transfer", "transferFrom",
	// "mint", "burn") being generated. Kinds missing from the map are never generated. When read from a file, the
	// map is merged over the default weights, so a kind is disabled by setting its weight to zero.
	ActionWeights map[string]uint64 `json:"actionWeights"`

	// ClosedWorld describes the identities and balances the ledger is set up with.
	ClosedWorld ClosedWorldConfig `json:"closedWorld"`

	// Testing describes the configuration used for the invariant test cases.
	Testing TestingConfig `json:"testing"`
}

// ClosedWorldConfig describes the owner, the participants and the initial distribution of the ledger.
type ClosedWorldConfig struct {
	// ParticipantCount describes the number of participants besides the owner.
	ParticipantCount int `json:"participantCount"`

	// ParticipantBalance describes the balance every participant is funded with.
	ParticipantBalance Amount `json:"participantBalance"`

	// InitialSupply describes the amount minted to the owner before participants are funded.
	InitialSupply Amount `json:"initialSupply"`

	// MintCeiling describes the largest amount a single mint action may create.
	MintCeiling Amount `json:"mintCeiling"`

	// OwnerAddress optionally fixes the owner identity. If empty, a default identity is used.
	OwnerAddress string `json:"ownerAddress,omitempty"`

	// ParticipantAddresses optionally fixes the participant identities. If empty, ParticipantCount identities are
	// generated.
	ParticipantAddresses []string `json:"participantAddresses,omitempty"`
}

// TestingConfig describes the configuration options used for testing
type TestingConfig struct {
	// StopOnFailedTest describes whether the fuzzing.Fuzzer should stop after detecting the first failed test.
	StopOnFailedTest bool `json:"stopOnFailedTest"`

	// VerifyShadowEachCall describes whether every tracked balance and allowance is compared to the shadow model
	// after every call, rather than once after every call sequence.
	VerifyShadowEachCall bool `json:"verifyShadowEachCall"`
}

// LoggingConfig describes the configuration options for logging to console and file
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	Level zerolog.Level `json:"level"`

	// LogDirectory describes what directory log files should be outputted in. If empty, no log files are written.
	LogDirectory string `json:"logDirectory"`

	// NoColor indicates whether log messages should be displayed with colored formatting.
	NoColor bool `json:"noColor"`
}

const (
	// CheckModeCall checks invariants after every call.
	CheckModeCall = "call"
	// CheckModeSequence checks invariants once at the end of every call sequence.
	CheckModeSequence = "sequence"

	// StoreBackendMemory keeps ledger state in memory.
	StoreBackendMemory = "memory"
	// StoreBackendBolt keeps ledger state in a bbolt database file.
	StoreBackendBolt = "bolt"
)

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Values missing from the
// file keep their defaults.
// Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration over the defaults
	projectConfig := GetDefaultProjectConfig()
	err = json.Unmarshal(b, projectConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// CheckVersion verifies that the provided tool version satisfies the configuration's version constraint. A
// configuration without a constraint accepts every version.
func (p *ProjectConfig) CheckVersion(toolVersion string) error {
	if p.Version == "" {
		return nil
	}
	constraint, err := semver.NewConstraint(p.Version)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint '%s'", p.Version)
	}
	v, err := semver.NewVersion(toolVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid tool version '%s'", toolVersion)
	}
	if !constraint.Check(v) {
		return errors.Errorf("configuration requires version %s, but this is version %s", p.Version, v.String())
	}
	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify the worker count is a positive number.
	if p.Fuzzing.Workers <= 0 {
		return errors.Errorf("fuzzer worker count must be positive number")
	}

	// Verify that the sequence length is a positive number
	if p.Fuzzing.CallSequenceLength <= 0 {
		return errors.Errorf("call sequence length must be a positive number")
	}

	// Verify the worker reset limit is a positive number
	if p.Fuzzing.WorkerResetLimit <= 0 {
		return errors.Errorf("worker reset limit must be a positive number")
	}

	// Verify the shrink limit is not negative
	if p.Fuzzing.ShrinkLimit < 0 {
		return errors.Errorf("shrink limit cannot be negative")
	}

	// Verify the check mode and store backend are known
	if p.Fuzzing.CheckMode != CheckModeCall && p.Fuzzing.CheckMode != CheckModeSequence {
		return errors.Errorf("check mode must be '%s' or '%s', got '%s'", CheckModeCall, CheckModeSequence, p.Fuzzing.CheckMode)
	}
	if p.Fuzzing.StoreBackend != StoreBackendMemory && p.Fuzzing.StoreBackend != StoreBackendBolt {
		return errors.Errorf("store backend must be '%s' or '%s', got '%s'", StoreBackendMemory, StoreBackendBolt, p.Fuzzing.StoreBackend)
	}

	// Verify action weights name known actions and select at least one of them
	var totalWeight uint64
	for name, weight := range p.Fuzzing.ActionWeights {
		if _, err := handler.ParseActionKind(name); err != nil {
			return errors.Wrapf(err, "invalid action weight")
		}
		totalWeight += weight
	}
	if totalWeight == 0 {
		return errors.Errorf("at least one action must have a non-zero weight")
	}

	// Verify the closed world can be set up
	_, err := p.Fuzzing.ClosedWorld.HandlerConfig()
	return err
}

// HandlerConfig converts the closed world configuration into a handler.Config, parsing any configured addresses.
// Returns an error if an address is malformed or the closed world cannot be set up.
func (c ClosedWorldConfig) HandlerConfig() (handler.Config, error) {
	config := handler.Config{
		ParticipantCount:   c.ParticipantCount,
		ParticipantBalance: c.ParticipantBalance.Uint256(),
		InitialSupply:      c.InitialSupply.Uint256(),
		MintCeiling:        c.MintCeiling.Uint256(),
	}

	if c.OwnerAddress != "" {
		owner, err := utils.HexStringToAddress(c.OwnerAddress)
		if err != nil {
			return handler.Config{}, errors.Wrapf(err, "malformed owner address")
		}
		config.Owner = *owner
	}
	if len(c.ParticipantAddresses) > 0 {
		participants, err := utils.HexStringsToAddresses(c.ParticipantAddresses)
		if err != nil {
			return handler.Config{}, errors.Wrapf(err, "malformed participant address(es)")
		}
		config.Participants = participants
	}

	if err := config.Validate(); err != nil {
		return handler.Config{}, err
	}
	return config, nil
}
