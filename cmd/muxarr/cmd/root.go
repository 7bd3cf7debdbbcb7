// Package cmd implements the CLI commands for muxarr.
package cmd

import (
	"fmt"

	"github.com/muxarr/muxarr/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "muxarr",
	Short:   "IPTV provider aggregation and proxy service",
	Version: version.Short(),
	Long: `muxarr aggregates Xtream Codes provider accounts into a single
downstream surface: one M3U playlist, one XMLTV guide, and a stream
proxy that manages provider connection limits.

It syncs provider catalogs on a schedule, extracts tags from channel
names, applies per-account filter and tag rules, matches channels to
EPG data (with FCC facility lookup for US locals), and optionally
probes channel health with ffmpeg.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default searches ., ./configs, /etc/muxarr, $HOME/.muxarr)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, text)")
}

// changedFlag returns a flag's value only when the user set it, so CLI
// flags override config and environment without masking them.
func changedFlag(flags *pflag.FlagSet, name string) (string, bool) {
	if !flags.Changed(name) {
		return "", false
	}
	value, err := flags.GetString(name)
	if err != nil {
		return "", false
	}
	return value, true
}
