package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "streamhub",
	Short: "Streamhub observable registry tool",
	Long: `Streamhub drives an in-process registry of named observables.

Available commands:
  run         Run a YAML scenario against a fresh registry
  validate    Check that key path segments are valid
  version     Print the version number

Use "streamhub [command] --help" for more information about a specific command.`,
	SilenceUsage: true,
}

// Execute executes the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load configuration from this .env file")
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}
