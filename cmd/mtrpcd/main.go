package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnosek/mtrpc/pkg/log"
)

var (
	// Version information (set via ldflags during build).
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "mtrpcd",
	Short:   "mtrpcd - JSON-RPC over AMQP task server",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("mtrpcd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	rootCmd.PersistentFlags().String("config", "mtrpc.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "override logging_settings.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "override logging_settings.json_output")

	cobra.OnInitialize(func() {})

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(helpCmd)
}

func initLogFromFlags(cmd *cobra.Command, cfgLevel string, cfgJSON bool) {
	level := cfgLevel
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		level = v
	}
	jsonOut := cfgJSON
	if v, _ := cmd.Flags().GetBool("log-json"); v {
		jsonOut = true
	}
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
