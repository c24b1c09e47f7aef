package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "gamecraft-orch",
		Short: "GameCraft Orchestrator - Video inference run manager",
		Long: `GameCraft Orchestrator drives interactive video generation runs.
It launches the inference process for an image and an action sequence,
waits for the video artifact, overlays action icons and records a manifest
for every run.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
