// Package main implements the cabi CLI.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cabi/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "cabi",
	Short: "x86 C ABI lowering toolkit",
	Long:  `cabi lowers C function types to their ABI-mandated IR signatures and attribute lists for x86 and x86-64 targets`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configureColor applies the --color persistent flag.
func configureColor(cmd *cobra.Command) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	}
}
