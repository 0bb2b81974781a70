package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/inferloop/kanon/cmd/cli/commands"
	"github.com/inferloop/kanon/pkg/constants"
)

func main() {
	rootCmd := createRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   constants.AppName,
		Short: "k-anonymity for purchase datasets",
		Long: `Generalize and suppress a tabular purchase dataset so that no combination of
quasi-identifier values singles out fewer records than wanted, and report
k-anonymity before and after.`,
		Version:       constants.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default is $HOME/.kanon.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("log-level", constants.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", constants.DefaultLogFormat, "log format (text, json)")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to a rotated file instead of stderr")

	// Add commands
	rootCmd.AddCommand(commands.NewAnonymizeCmd())
	rootCmd.AddCommand(commands.NewKAnonymityCmd())
	rootCmd.AddCommand(commands.NewBadGroupsCmd())
	rootCmd.AddCommand(commands.NewColumnsCmd())

	return rootCmd
}
