package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "payledger",
		Short: "Account ledger with transfers and monthly scheduled payments",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newSweepCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newBenchCommand(),
	)

	return rootCmd
}
