package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/streamhub/internal/keypath"
)

// validateCmd checks a key path without touching a registry
var validateCmd = &cobra.Command{
	Use:   "validate <segment>...",
	Short: "Validate a key path",
	Long: `Validate a key path given as one argument per segment.

A key path needs at least one segment, and segments must be non-empty and
free of control characters. Dots inside a segment are literal.

Examples:
  streamhub validate counter              # one segment
  streamhub validate user name            # two segments: user, name
  streamhub validate user.name            # one segment named "user.name"`,
	Args: cobra.ArbitraryArgs,
	Run:  validateHandler,
}

func validateHandler(cmd *cobra.Command, args []string) {
	path := keypath.New(args...)
	if err := path.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Key path validation failed: %v\n", err)
		os.Exit(1)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Key path %q is valid\n", path.String())
	fmt.Fprintf(out, "   Segments: %d\n", len(path))
	for i, segment := range path {
		fmt.Fprintf(out, "   [%d] %s\n", i, segment)
	}
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
