package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nfrund/streamhub/cmd/streamhub/internal/report"
	"github.com/nfrund/streamhub/internal/app"
	"github.com/nfrund/streamhub/internal/config"
)

var runFormat string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a scenario file",
	Long: `Run a YAML scenario against a fresh registry and print every step
outcome and every value delivered to a subscriber.

The command exits with status 1 when any step does not behave as expected.

Examples:
  streamhub run counter.yaml                  # Table output
  streamhub run counter.yaml --format json    # JSON output
  STREAMHUB_REPLAY=false streamhub run counter.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runHandler,
}

// runHandler returns errors instead of exiting so the app is always closed,
// flushing traces and stopping the bridge.
func runHandler(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(runFormat)
	if err != nil {
		return err
	}

	a := app.New(config.New(envFiles()...))
	defer a.Close()

	loader, err := a.Loader()
	if err != nil {
		return err
	}
	sc, err := loader.Load(args[0])
	if err != nil {
		return err
	}

	runner, err := a.Runner()
	if err != nil {
		return err
	}
	rep, err := runner.Run(cmd.Context(), sc)
	if err != nil {
		return err
	}

	if err := report.Write(cmd.OutOrStdout(), rep, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if rep.Failed() {
		return fmt.Errorf("scenario %q failed", rep.Scenario)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "table", "Output format (table, json)")
	rootCmd.AddCommand(runCmd)
}
