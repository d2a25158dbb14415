package gitsync

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitsync/internal/gitcmd"
	"github.com/skaphos/gitsync/internal/refs"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check a source/target repository pair for pre-existing conflict branches before syncing",
	RunE:  runDoctor,
}

func init() {
	flags := doctorCmd.Flags()
	flags.String("source", "", "path to the source repository (required)")
	flags.String("target", "", "path to the target repository (required)")

	if err := doctorCmd.MarkFlagRequired("source"); err != nil {
		panic(err)
	}
	if err := doctorCmd.MarkFlagRequired("target"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := cmd.OutOrStdout()
	healthy := true

	if _, err := refs.List(ctx, gitcmd.New(nil), source); err != nil {
		healthy = false
		fmt.Fprintln(out, err.Error())
	}
	if _, err := refs.List(ctx, gitcmd.New(nil), target); err != nil {
		healthy = false
		fmt.Fprintln(out, err.Error())
	}

	if healthy {
		fmt.Fprintln(out, "ok: no pre-existing conflict branches found")
		return nil
	}
	raiseExitCode(1)
	return nil
}
