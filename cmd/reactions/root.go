package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig string
	flagEnvDir string
)

var rootCmd = &cobra.Command{
	Use:           "reactions",
	Short:         "Media reaction finder",
	Long:          "reactions aggregates web coverage, Reddit discussions and posts on X about an article or topic, and writes commentary about them.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default $XDG_CONFIG_HOME/reactions/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvDir, "env-dir", ".", "directory holding .env and .env.local")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("reactions %s (commit: %s)\n", version, commit)
	},
}

// loadConfig reads .env files then the config file.
func loadConfig() (*config.Config, error) {
	config.LoadDotEnv(flagEnvDir)
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reactions: %v\n", err)
		os.Exit(1)
	}
}
