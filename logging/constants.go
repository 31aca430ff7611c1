package logging

// These constants are used to identify the various services that may do some logging
const (
	// FUZZING_SERVICE is the constant used to identify the fuzzing package
	FUZZING_SERVICE = "fuzzing"
	// HANDLER_SERVICE is the constant used to identify the handler package
	HANDLER_SERVICE = "handler"
	// LEDGER_SERVICE is the constant used to identify the ledger package
	LEDGER_SERVICE = "ledger"
	// CLI_SERVICE is the constant used to identify the cmd package
	CLI_SERVICE = "cli"
)
