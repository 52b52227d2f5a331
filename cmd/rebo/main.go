package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"rebo/internal/runtime"
	"rebo/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "rebo",
	Short: "Rebo runtime core and port toolkit",
	Long:  `Rebo is a series-based runtime core with device-backed port schemes`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(waitCmd)

	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().String("trace", "", "trace level (off|error|port|debug)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether a file is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// loadRuntimeConfig reads the --config flag, then applies --trace on top.
func loadRuntimeConfig(cmd *cobra.Command) (runtime.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("trace")
	cfg := runtime.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = runtime.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
	}
	if level != "" {
		cfg.TraceLevel = level
	}
	return cfg, nil
}
