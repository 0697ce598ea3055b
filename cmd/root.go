package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "podrag",
	Short: "Retrieval over podcast transcripts",
	Long: `podrag splits speaker-labelled podcast transcripts into overlapping
line windows, embeds them into a vector index and retrieves the passages
most relevant to a question. Answers can be generated in the hosts' voice
from the command line, over HTTP or through MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, printing any error and exiting non-zero.
func Execute() {
	exitOnError(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "podrag.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
