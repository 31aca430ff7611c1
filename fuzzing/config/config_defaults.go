package config

import (
	"github.com/crytic/tokenfuzz/handler"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a campaign.
func GetDefaultProjectConfig() *ProjectConfig {
	closedWorld := handler.DefaultConfig()

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Fuzzing: FuzzingConfig{
			Workers:            10,
			WorkerResetLimit:   50,
			Timeout:            0,
			TestLimit:          0,
			CallSequenceLength: 100,
			Seed:               0,
			CheckMode:          CheckModeCall,
			ShrinkLimit:        5000,
			StoreBackend:       StoreBackendMemory,
			StoreDirectory:     "",
			ActionWeights: map[string]uint64{
				handler.ActionApprove.String():      20,
				handler.ActionTransfer.String():     25,
				handler.ActionTransferFrom.String(): 25,
				handler.ActionMint.String():         15,
				handler.ActionBurn.String():         15,
			},
			ClosedWorld: ClosedWorldConfig{
				ParticipantCount:   closedWorld.ParticipantCount,
				ParticipantBalance: NewAmountFromUint256(closedWorld.ParticipantBalance),
				InitialSupply:      NewAmountFromUint256(closedWorld.InitialSupply),
				MintCeiling:        NewAmountFromUint256(closedWorld.MintCeiling),
			},
			Testing: TestingConfig{
				StopOnFailedTest:     true,
				VerifyShadowEachCall: false,
			},
		},
		Logging: LoggingConfig{
			Level:        zerolog.InfoLevel,
			LogDirectory: "",
			NoColor:      false,
		},
	}

	// Return the project configuration
	return projectConfig
}
