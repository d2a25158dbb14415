package gitsync

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skaphos/gitsync/internal/plugin"
)

var pluginCheckCmd = &cobra.Command{
	Use:   "plugin-check PATH",
	Short: "Launch a plugin sidecar, validate its exported hooks, and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		sc, err := plugin.New(ctx, args[0])
		if err != nil {
			raiseExitCode(2)
			return err
		}
		defer func() { _ = sc.Close() }()

		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, exports %v\n", sc.Path(), sc.Exports())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginCheckCmd)
}
