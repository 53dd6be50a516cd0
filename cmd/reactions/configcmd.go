package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/reactions/internal/config"
)

var flagForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long:  "init writes the built-in defaults to the config path. API keys are left empty; set them in the file or through the environment.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := flagConfig
		if path == "" {
			path = config.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !flagForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.DefaultConfig().Save(path); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		cmd.Printf("wrote %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Run: func(cmd *cobra.Command, _ []string) {
		if flagConfig != "" {
			cmd.Println(flagConfig)
			return
		}
		cmd.Println(config.ConfigPath())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
