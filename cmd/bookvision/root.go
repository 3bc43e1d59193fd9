package main

import (
	"github.com/spf13/cobra"

	"github.com/bookvision/bookvision/internal/api"
	"github.com/bookvision/bookvision/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "bookvision",
	Short: "Turn books into narrated, illustrated, discussable experiences",
	Long: `Bookvision ingests books (PDF, ePub, plain text) and generates
multimedia companions for them using LLM, TTS, and image providers.

For each book it can produce:
  - A structured analysis (summary, characters, places, chapter map)
  - Narrated audio of the opening text
  - Cover, scene, and character images
  - A two-host podcast episode discussing the book
  - Grounded question answering over the text`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.bookvision/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "bookvision home directory (default: ~/.bookvision)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
