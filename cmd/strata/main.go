package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	strataerrors "github.com/strata-dev/strata/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "strata",
		Short: "Inspector for strata store registries",
		Long: `Strata is a reactive store library for Go.

This CLI talks to the devtools endpoint an application exposes via
devtools.NewServer. It can stream mutations and actions live, or take
a one-shot snapshot of every registered store.

The endpoint is resolved from strata.json (searched upward from the
working directory), STRATA_* environment variables, or flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		inspectCmd(),
		snapshotCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		var serr *strataerrors.Error
		if errors.As(err, &serr) {
			fmt.Fprintln(os.Stderr, strataerrors.Format(serr))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}
