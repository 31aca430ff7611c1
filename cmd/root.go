package cmd

import (
	"os"

	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/version"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the root CLI command object which all other commands stem from.
var rootCmd = &cobra.Command{
	Use:     "tokenfuzz",
	Version: version.GetInfo().Short(),
	Short:   "A stateful invariant fuzzer for fungible-value ledgers",
	Long:    "tokenfuzz drives a fungible-value ledger through random sequences of clamped actions and checks it against a shadow model and its global invariants",
}

// cmdLogger is the logger that will be used for the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel).NewSubLogger("module", logging.CLI_SERVICE)

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute provides an exportable function to invoke the CLI. Returns an error if one was encountered.
func Execute() error {
	return rootCmd.Execute()
}
