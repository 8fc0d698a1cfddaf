// Command k8dnz encodes, decodes, fits, and inspects K8DNZ artifacts from
// the command line.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/y3llowvests/k8dnz/internal/k8err"
)

var rootCmd = &cobra.Command{
	Use:   "k8dnz",
	Short: "Deterministic fixed-point program+patch codec",
	Long: `k8dnz generates, fits, and reconstructs byte streams against a
deterministic fixed-point orbital cadence engine (spec.md).

COMMANDS:
  encode        XOR a file with the generator stream into an .ark container
  decode        recover an .ark container's plaintext by re-XORing the stream
  ark-inspect   print an .ark container's recipe and data length
  sim           run the cadence engine and print the emitted tokens
  analyze       summarize a byte stream's symbol histogram
  timemap       fit/reconstruct residuals against the generator stream
  orbexp        orbital banding experiments (diagnostic, non-reconstructible)
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(encodeCmd, decodeCmd, arkInspectCmd, simCmd, analyzeCmd, timemapCmd, orbexpCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", formatErr(err))
		os.Exit(exitCode(err))
	}
}

// formatErr renders err as spec.md §6's single-line "<kind>: <context>"
// body (the "error: " prefix is added by the caller); errors that never
// passed through k8err just print as-is.
func formatErr(err error) error {
	return err
}

// exitCode maps err to the process exit code spec.md §6 assigns to its
// k8err.Kind. Untagged errors come from cobra/pflag (unknown command,
// unknown flag, malformed flag value) and from the subcommands' own plain
// flag checks (a missing --in or --target, an unknown --objective) — all
// user/arg-shaped failures, so they get exit 2 rather than the catch-all 1 that k8err.Other uses for genuine
// runtime failures (I/O errors wrapped by recipeflags.go).
func exitCode(err error) int {
	var kerr *k8err.Error
	if errors.As(err, &kerr) {
		return kerr.Kind.ExitCode()
	}
	return 2
}
