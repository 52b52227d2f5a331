package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rebo/internal/runtime"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Boot the runtime and print its counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRuntimeConfig(cmd)
		if err != nil {
			return err
		}
		rt := runtime.Boot(cfg)
		defer rt.Shutdown()

		s := rt.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "uptime:   %s\n", s.Uptime)
		fmt.Fprintf(out, "evals:    %d\n", s.Evals)
		fmt.Fprintf(out, "managed:  %d\n", s.Managed)
		fmt.Fprintf(out, "pending:  %d\n", s.Pending)
		fmt.Fprintf(out, "events:   %d\n", s.Events)
		fmt.Fprintf(out, "made:     %d\n", s.Pool.Made)
		fmt.Fprintf(out, "freed:    %d\n", s.Pool.Freed)
		fmt.Fprintf(out, "expanded: %d\n", s.Pool.Expanded)
		fmt.Fprintf(out, "recycles: %d\n", s.Pool.Recycles)
		return nil
	},
}
