package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anchorgrid/anchorsched/internal/cli"
)

// main is a thin cobra shell around cli.Run, the deterministic boundary
// that canonicalizes all invocation inputs before any scheduling logic
// runs. Flag parsing itself stays in cli.ParseInvocation so the same
// argument slice behaves identically whether it arrives via this binary
// or via a black-box test calling cli.Run directly.
func main() {
	root := &cobra.Command{
		Use:                "anchorsched",
		Short:              "Drive a dependency-ordered batch of 3x3 tile-anchor edits around an origin",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := cli.Run(context.Background(), args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(result.ExitCode)
			return nil
		},
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitInternalError)
	}
}
