package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"rebo/internal/port"
	"rebo/internal/runtime"
)

var waitSignals bool

func init() {
	waitCmd.Flags().BoolVar(&waitSignals, "signals", false, "open the signal port and report caught signals")
}

var waitCmd = &cobra.Command{
	Use:   "wait [timeout-ms]",
	Short: "Poll the device layer and drain completion events",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout := 1000
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return fmt.Errorf("timeout must be a non-negative integer, got %q", args[0])
			}
			timeout = n
		}

		cfg, err := loadRuntimeConfig(cmd)
		if err != nil {
			return err
		}
		rt := runtime.Boot(cfg)
		defer rt.Shutdown()

		if waitSignals {
			if _, ferr := rt.OpenPort(&port.Spec{Scheme: "signal"}); ferr != nil {
				return fmt.Errorf("open signal port: %s", ferr.Error())
			}
		}
		if !isTerminal(os.Stdin) {
			fmt.Fprintln(cmd.ErrOrStderr(), "stdin is not a terminal")
		}

		processed := rt.Wait(timeout)
		fmt.Fprintf(cmd.OutOrStdout(), "events: %d\n", processed)
		return nil
	},
}
