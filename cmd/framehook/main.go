// Command framehook runs a frame registry with demo consumers and exposes
// it through the debug server.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/framehook/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "framehook",
		Short: "Per-frame scheduling registry",
		Long: `framehook coalesces many "run on every frame" requests into a single
frame subscription and notifies listeners only when values change.

The run command drives demo consumers on a real-time ticker and serves
consumer state, frame timelines and metrics over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		runCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

// success prints a success message to w.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
