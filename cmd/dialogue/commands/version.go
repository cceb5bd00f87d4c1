package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/firstuse/dialogue/cmd/dialogue/internal/build"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), build.String())
		if IsVerbose() {
			fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", runtime.Version())
			if cfg, err := GetConfig(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "  config: %s\n", cfg.Dir)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "  config: (unavailable: %v)\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
